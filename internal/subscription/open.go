// ABOUTME: Driver selection for subscription stores
// ABOUTME: Maps the configured storage driver name to a Store constructor

package subscription

import "fmt"

// Driver names accepted by Open.
const (
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Open creates the store for driver at path.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverBadger, "":
		return NewBadgerStore(path)
	case DriverSQLite:
		return NewSQLiteStore(path)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
