package core

import "context"

// Store is the external persistence collaborator.
//
// Insert is called once per create and returns the generated identifier.
// Update and Delete address an existing identifier and return
// ErrRecordNotFound when it is unknown. Find returns ErrRecordNotFound when
// no document exists. Stores receive copies of the record fields.
type Store interface {
	Insert(ctx context.Context, collection string, fields *Fields) (any, error)
	Update(ctx context.Context, collection string, id any, fields *Fields) error
	Delete(ctx context.Context, collection string, id any) error
	Find(ctx context.Context, collection string, id any) (*Fields, error)
}
