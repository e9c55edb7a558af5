// Package inmemdb implements the repositories in memory, for tests and demos.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/invoice"
	"github.com/trezcool/academia/core/track"
	"github.com/trezcool/academia/core/user"
)

type (
	DB struct {
		user       *userTable
		track      *trackTable
		enrollment *enrollmentTable
		invoice    *invoiceTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	trackTable struct {
		sync.RWMutex
		table   map[string]*track.Track
		courses map[string][]track.Course // by track ID
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string]*enrollment.Enrollment
	}

	invoiceTable struct {
		sync.RWMutex
		table map[string]*invoice.Invoice
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		track:      &trackTable{table: make(map[string]*track.Track), courses: make(map[string][]track.Course)},
		enrollment: &enrollmentTable{table: make(map[string]*enrollment.Enrollment)},
		invoice:    &invoiceTable{table: make(map[string]*invoice.Invoice)},
	}
}

// lessFunc compares the items i and j of a slice on one column.
type lessFunc func(i, j int) (less, equal bool)

// sortBy sorts a slice following orderings; columns without a lessFunc are ignored.
func sortBy(slice interface{}, orderings []core.DBOrdering, columns map[string]lessFunc) {
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range orderings {
			cmp, ok := columns[ord.Field]
			if !ok {
				continue
			}
			if ord.Ascending {
				if less, equal := cmp(i, j); !equal {
					return less
				}
			} else {
				if less, equal := cmp(j, i); !equal {
					return less
				}
			}
		}
		return false
	})
}
