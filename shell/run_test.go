package shell

import (
	"context"
	"net/http"
	"testing"
	"time"

	"vogue/localstore"
	"vogue/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestRunTicksAndLeaksNothing(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	storage := localstore.NewMemory()
	s := New(Deps{
		SessionID: "leak",
		Storage:   storage,
		Remote:    &remote.Client{BaseURL: "http://upstream.test", HTTP: &http.Client{Transport: downTransport{}}},
		Intervals: Intervals{
			Session:       2 * time.Millisecond,
			Autosave:      3 * time.Millisecond,
			Notifications: 5 * time.Millisecond,
			Sync:          4 * time.Millisecond,
		},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	require.True(t, s.Cart.AddItem(ctx, "1", 1, nil), "static fallback answers while offline")
	require.NoError(t, s.Run(ctx))

	var snap Autosave
	require.NoError(t, localstore.GetJSON(context.Background(), storage, AutosaveKey, &snap))
	assert.Len(t, snap.Cart, 1)

	require.NoError(t, s.Close(context.Background()))
	assert.Error(t, s.cartSync.LastError())
}
