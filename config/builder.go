package config

import (
	"fmt"

	"github.com/jpalmerr/livesync"
)

// Item is the dynamic item shape used by config-driven stores: one JSON
// object per item, keyed and sorted by named fields.
type Item = map[string]any

// BuildStores registers every configured store and presence topic in the
// session.
//
// Config-driven stores hold [Item] values; identity comes from the
// configured key field (items without it get an empty key) and ordering,
// when configured, from a field comparison that orders numbers
// numerically and everything else lexically.
func BuildStores(session *livesync.Session, cfg *Config) ([]*livesync.Store[Item], []*livesync.Presence, error) {
	stores := make([]*livesync.Store[Item], 0, len(cfg.Stores))
	for _, sc := range cfg.Stores {
		opts := []livesync.StoreOption[Item]{
			livesync.WithKey[Item](fieldKey(sc.Key)),
		}
		if sc.Sort != nil {
			opts = append(opts, livesync.WithSort[Item](fieldLess(sc.Sort.Field, sc.Sort.Order == "desc")))
		}

		store, err := livesync.NewStore(session, sc.Name, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("store %q: %w", sc.Name, err)
		}
		stores = append(stores, store)
	}

	presences := make([]*livesync.Presence, 0, len(cfg.Topics))
	for _, topic := range cfg.Topics {
		p, err := session.Track(topic)
		if err != nil {
			return nil, nil, fmt.Errorf("topic %q: %w", topic, err)
		}
		presences = append(presences, p)
	}

	return stores, presences, nil
}

// fieldKey extracts the identity key from the named field.
func fieldKey(field string) func(Item) string {
	return func(item Item) string {
		switch v := item[field].(type) {
		case string:
			return v
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
}

// fieldLess compares two items on the named field. Numbers (which JSON
// decodes as float64) compare numerically; everything else compares as
// strings. Missing fields order first.
func fieldLess(field string, desc bool) func(a, b Item) bool {
	return func(a, b Item) bool {
		av, bv := a[field], b[field]

		var less bool
		af, aNum := av.(float64)
		bf, bNum := bv.(float64)
		switch {
		case aNum && bNum:
			less = af < bf
		case av == nil && bv != nil:
			less = true
		case bv == nil:
			less = false
		default:
			less = fmt.Sprint(av) < fmt.Sprint(bv)
		}

		if desc {
			return !less && !fieldEqual(av, bv)
		}
		return less
	}
}

func fieldEqual(a, b any) bool {
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}
