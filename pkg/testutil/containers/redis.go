//go:build integration

package containers

import (
	"context"
	"fmt"

	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// StartRedis runs a disposable Redis container and returns its URL and a
// terminate func.
func StartRedis(ctx context.Context) (string, func(), error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return "", nil, fmt.Errorf("start redis container: %w", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, fmt.Errorf("redis connection string: %w", err)
	}

	terminate := func() { _ = container.Terminate(context.Background()) }
	return url, terminate, nil
}
