package common

import (
	"github.com/nspcc-dev/neo-go/pkg/interop/native/std"
	"github.com/nspcc-dev/neo-go/pkg/interop/storage"
)

// GetInt returns integer stored by the key, zero if there is none.
func GetInt(ctx storage.Context, key any) int {
	data := storage.Get(ctx, key)
	if data != nil {
		return data.(int)
	}

	return 0
}

// SetSerialized serializes data and puts it into contract storage.
func SetSerialized(ctx storage.Context, key any, value any) {
	data := std.Serialize(value)
	storage.Put(ctx, key, data)
}
