package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	a := &Session{CallSID: "call-a", ShopID: "shop-1"}
	b := &Session{CallSID: "call-b", ShopID: "shop-2"}
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))
	assert.Equal(t, 2, r.Count())

	got, ok := r.Get("call-a")
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = r.Get("call-missing")
	assert.False(t, ok)
}

func TestRegistryDuplicateSID(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	first := &Session{CallSID: "call-a", ShopID: "shop-1"}
	require.NoError(t, r.Register(first))
	err := r.Register(&Session{CallSID: "call-a", ShopID: "shop-2"})
	assert.ErrorIs(t, err, ErrDuplicateSession)

	// The original entry survives the rejected registration.
	got, ok := r.Get("call-a")
	require.True(t, ok)
	assert.Same(t, first, got)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Register(&Session{CallSID: "call-a", ShopID: "shop-1"}))
	r.Unregister("call-a")
	assert.Equal(t, 0, r.Count())

	// Absent SID is a no-op.
	r.Unregister("call-a")
	assert.Equal(t, 0, r.Count())
}

func TestRegistryListByShop(t *testing.T) {
	r := NewRegistry(zap.NewNop())

	require.NoError(t, r.Register(&Session{CallSID: "call-a", ShopID: "shop-1"}))
	require.NoError(t, r.Register(&Session{CallSID: "call-b", ShopID: "shop-1"}))
	require.NoError(t, r.Register(&Session{CallSID: "call-c", ShopID: "shop-2"}))

	byShop := r.ListByShop()
	assert.Len(t, byShop["shop-1"], 2)
	assert.Equal(t, []string{"call-c"}, byShop["shop-2"])
}
