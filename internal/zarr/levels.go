package zarr

import "fmt"

// The repository numbers pyramid levels from full resolution (0) to most
// downsampled (n-1). The gateway exposes the opposite order: level 0 is the
// most downsampled array and level n-1 the full resolution one. These two
// functions are the only conversion between the schemes.

// StoreLevel converts a gateway level to the repository level.
func StoreLevel(gatewayLevel, n int) (int, error) {
	if gatewayLevel < 0 || gatewayLevel >= n {
		return 0, fmt.Errorf("%w: level %d (levels: %d)", ErrLevelOutOfRange, gatewayLevel, n)
	}
	return (n - 1) - gatewayLevel, nil
}

// GatewayLevel converts a repository level to the gateway level.
func GatewayLevel(storeLevel, n int) (int, error) {
	if storeLevel < 0 || storeLevel >= n {
		return 0, fmt.Errorf("%w: store level %d (levels: %d)", ErrLevelOutOfRange, storeLevel, n)
	}
	return (n - 1) - storeLevel, nil
}
