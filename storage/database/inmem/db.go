package inmemdb

import (
	"context"
	"sort"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/course"
	"github.com/trezcool/academia/core/message"
	"github.com/trezcool/academia/core/notification"
	"github.com/trezcool/academia/core/progress"
	"github.com/trezcool/academia/core/user"
)

type txKey struct{}

type tables struct {
	users         map[int]user.User
	courses       map[int]course.Course
	materials     map[int]course.Material
	progress      map[int]progress.Progress
	notifications map[int]notification.Notification
	messages      map[int]message.Message

	userSeq, courseSeq, materialSeq, progressSeq, notificationSeq, messageSeq int
}

func newTables() tables {
	return tables{
		users:         make(map[int]user.User),
		courses:       make(map[int]course.Course),
		materials:     make(map[int]course.Material),
		progress:      make(map[int]progress.Progress),
		notifications: make(map[int]notification.Notification),
		messages:      make(map[int]message.Message),
	}
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	c := make(map[K]V, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func (t tables) clone() tables {
	c := t
	c.users = copyMap(t.users)
	c.courses = copyMap(t.courses)
	c.materials = copyMap(t.materials)
	c.progress = copyMap(t.progress)
	c.notifications = copyMap(t.notifications)
	c.messages = copyMap(t.messages)
	return c
}

// DB is an in-memory store enforcing the same uniqueness and cascade rules as the SQL schema.
// Transactions are serialized and rolled back by restoring a snapshot.
type DB struct {
	mutex   sync.RWMutex
	txMutex sync.Mutex
	t       tables
}

func NewDB() *DB {
	return &DB{t: newTables()}
}

// RunInTx implements core.Transactor.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if inTx, _ := ctx.Value(txKey{}).(bool); inTx {
		return fn(ctx)
	}

	db.txMutex.Lock()
	defer db.txMutex.Unlock()

	db.mutex.RLock()
	snapshot := db.t.clone()
	db.mutex.RUnlock()

	committed := false
	defer func() {
		if !committed {
			db.mutex.Lock()
			db.t = snapshot
			db.mutex.Unlock()
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		return err
	}
	committed = true
	return nil
}

var _ core.Transactor = (*DB)(nil)

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func paginate[V any](items []V, page core.Page) []V {
	if page.Limit == 0 {
		if page.Skip >= len(items) {
			return items[:0]
		}
		return items[page.Skip:]
	}
	start, end := page.Bounds(len(items))
	return items[start:end]
}

// deleteCourse removes the course with its materials and progress records. Callers hold the write lock.
func (t *tables) deleteCourse(id int) {
	delete(t.courses, id)
	for mid, m := range t.materials {
		if m.CourseID == id {
			delete(t.materials, mid)
		}
	}
	for pid, p := range t.progress {
		if p.CourseID == id {
			delete(t.progress, pid)
		}
	}
}

// deleteUser removes the user with everything referencing it. Callers hold the write lock.
func (t *tables) deleteUser(id int) {
	delete(t.users, id)
	for cid, c := range t.courses {
		if c.InstructorID == id {
			t.deleteCourse(cid)
		}
	}
	for pid, p := range t.progress {
		if p.UserID == id {
			delete(t.progress, pid)
		}
	}
	for nid, n := range t.notifications {
		if n.UserID == id {
			delete(t.notifications, nid)
		}
	}
	for mid, m := range t.messages {
		if m.SenderID == id || m.ReceiverID == id {
			delete(t.messages, mid)
		}
	}
}
