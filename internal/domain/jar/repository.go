package jar

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines jar persistence operations
type Repository interface {
	Create(ctx context.Context, j *Jar) error
	GetByID(ctx context.Context, id uuid.UUID) (*Jar, error)

	// ListWithWithdrawableBalance returns jars whose settled balance meets the
	// minimum, for the daily balance reminder sweep.
	ListWithWithdrawableBalance(ctx context.Context, minimum int64, limit int) ([]*Jar, error)

	// ListDormantOpen returns open jars with no contributions since the cutoff
	ListDormantOpen(ctx context.Context, since time.Time, limit int) ([]*Jar, error)
}

// ErrJarNotFound indicates a missing jar
type ErrJarNotFound struct {
	ID uuid.UUID
}

func (e ErrJarNotFound) Error() string {
	return "jar not found: " + e.ID.String()
}

// Is matches any ErrJarNotFound when the target carries a nil ID
func (e ErrJarNotFound) Is(target error) bool {
	t, ok := target.(ErrJarNotFound)
	if !ok {
		return false
	}
	if t.ID == uuid.Nil {
		return true
	}
	return e.ID == t.ID
}

// ErrJarNotAccepting indicates the jar's status blocks new transactions
type ErrJarNotAccepting struct {
	ID     uuid.UUID
	Status string
}

func (e ErrJarNotAccepting) Error() string {
	return "jar " + e.ID.String() + " is not accepting transactions (status: " + e.Status + ")"
}

// Is matches any ErrJarNotAccepting regardless of jar detail
func (e ErrJarNotAccepting) Is(target error) bool {
	_, ok := target.(ErrJarNotAccepting)
	return ok
}
