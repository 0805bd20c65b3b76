package preferences

import (
	"context"
	"testing"

	"github.com/aleister1102/linkscout/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_SetNotifiesOnChange(t *testing.T) {
	m := NewMemory(models.DefaultPreferences())

	var got []models.Preferences
	sub := m.Subscribe(func(p models.Preferences) { got = append(got, p) })
	assert.Equal(t, 1, m.Subscribers())

	off := models.Preferences{AutoScanEnabled: false, AutoUnrestrict: true}
	m.Set(off)
	m.Set(off)

	require.Len(t, got, 1)
	assert.Equal(t, off, got[0])

	current, err := m.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, off, current)

	sub.Release()
	sub.Release()
	assert.Equal(t, 0, m.Subscribers())

	m.Set(models.DefaultPreferences())
	assert.Len(t, got, 1)
}
