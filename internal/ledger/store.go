package ledger

// Store defines the interface for ledger operations. Consumers should
// depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type Store interface {
	CreateTempItem(name string, calories, carbs, fats, protein float64, day string) (int, error)
	TempItemsForDay(day string) ([]TempItem, error)
	DeleteTempItem(id int) (bool, error)
	TempItemDays() ([]string, error)
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error
	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)
