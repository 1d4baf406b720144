package lifecycle_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/intakeworks/offlinekit/cachestore"
	"github.com/intakeworks/offlinekit/lifecycle"
	"github.com/intakeworks/offlinekit/strategy"
)

func ExampleNewController() {
	ctx := context.Background()
	store := cachestore.NewMemoryStore(cachestore.Unlimited())
	fetcher := strategy.FetcherFunc(func(ctx context.Context, req *http.Request) (*cachestore.Response, error) {
		return &cachestore.Response{StatusCode: http.StatusOK, Body: []byte("shell")}, nil
	})

	ctrl, err := lifecycle.NewController(lifecycle.Config{
		Store:    store,
		Fetcher:  fetcher,
		Versions: lifecycle.NewVersionSet("v1"),
		Manifest: []string{"https://portal.example.com/offline.html"},
	})
	if err != nil {
		panic(err)
	}

	stats, _ := ctrl.Install(ctx)
	fmt.Println(ctrl.Phase(), stats.Cached)
	_, _ = ctrl.Activate(ctx)
	fmt.Println(ctrl.Phase())
	// Output:
	// installed 1
	// active
}
