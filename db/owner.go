package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgxutil"
)

var ErrOwnerNotFound = errors.New("owner not found")

type Owner struct {
	ID        int32
	FirstName string
	LastName  string
	Address   string
	City      string
	Telephone string
}

func (o *Owner) FullName() string {
	return o.FirstName + " " + o.LastName
}

// GetOwner returns the owner with id. It returns ErrOwnerNotFound if there is no such owner.
func GetOwner(ctx context.Context, db pgxutil.DB, id int32) (*Owner, error) {
	owner, err := pgxutil.SelectRow(ctx, db,
		"select id, first_name, last_name, address, city, telephone from owners where id = $1",
		[]any{id},
		pgx.RowToAddrOfStructByPos[Owner],
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOwnerNotFound
		}
		return nil, err
	}

	return owner, nil
}

// UpdateOwner writes all fields of owner to the row with owner.ID.
func UpdateOwner(ctx context.Context, db pgxutil.DB, owner *Owner) error {
	ct, err := db.Exec(ctx,
		`update owners
set first_name = $2,
	last_name = $3,
	address = $4,
	city = $5,
	telephone = $6
where id = $1`,
		owner.ID, owner.FirstName, owner.LastName, owner.Address, owner.City, owner.Telephone,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrOwnerNotFound
	}

	return nil
}
