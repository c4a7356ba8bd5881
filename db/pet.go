package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgxutil"
)

var ErrPetNotFound = errors.New("pet not found")
var ErrPetTypeNotFound = errors.New("pet type not found")

// VisitOrder is the order visits are listed in under each pet.
type VisitOrder string

const (
	VisitOrderAsc  VisitOrder = "asc"
	VisitOrderDesc VisitOrder = "desc"
)

// ParseVisitOrder parses the sortOrder query parameter. Anything other than "desc" is ascending.
func ParseVisitOrder(s string) VisitOrder {
	if s == string(VisitOrderDesc) {
		return VisitOrderDesc
	}
	return VisitOrderAsc
}

type PetType struct {
	ID   int32
	Name string
}

type Pet struct {
	ID        int32
	Name      string
	BirthDate time.Time
	Type      string
	OwnerID   int32

	Visits []*Visit
}

type Visit struct {
	ID          int32
	PetID       int32
	Date        time.Time
	Description string
}

func rowToPet(row pgx.CollectableRow) (*Pet, error) {
	pet := &Pet{}
	err := row.Scan(&pet.ID, &pet.Name, &pet.BirthDate, &pet.Type, &pet.OwnerID)
	if err != nil {
		return nil, err
	}
	return pet, nil
}

const selectPetSQL = `select pets.id, pets.name, pets.birth_date, types.name, pets.owner_id
from pets
	join types on pets.type_id=types.id`

// GetPets returns the pets of an owner ordered by name. Each pet's visits are loaded and ordered by date in order.
func GetPets(ctx context.Context, db pgxutil.DB, ownerID int32, order VisitOrder) ([]*Pet, error) {
	pets, err := pgxutil.Select(ctx, db, selectPetSQL+" where pets.owner_id = $1 order by pets.name, pets.id", []any{ownerID}, rowToPet)
	if err != nil {
		return nil, err
	}

	direction := "asc"
	if order == VisitOrderDesc {
		direction = "desc"
	}

	visits, err := pgxutil.Select(ctx, db,
		fmt.Sprintf(`select visits.id, visits.pet_id, visits.visit_date, visits.description
from visits
	join pets on visits.pet_id=pets.id
where pets.owner_id = $1
order by visits.visit_date %s, visits.id %[1]s`, direction),
		[]any{ownerID},
		pgx.RowToAddrOfStructByPos[Visit],
	)
	if err != nil {
		return nil, err
	}

	petsByID := make(map[int32]*Pet, len(pets))
	for _, pet := range pets {
		petsByID[pet.ID] = pet
	}
	for _, visit := range visits {
		if pet, ok := petsByID[visit.PetID]; ok {
			pet.Visits = append(pet.Visits, visit)
		}
	}

	return pets, nil
}

// GetPet returns the pet with petID belonging to ownerID. It returns ErrPetNotFound if there is no such pet.
func GetPet(ctx context.Context, db pgxutil.DB, ownerID, petID int32) (*Pet, error) {
	pet, err := pgxutil.SelectRow(ctx, db, selectPetSQL+" where pets.owner_id = $1 and pets.id = $2", []any{ownerID, petID}, rowToPet)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPetNotFound
		}
		return nil, err
	}

	return pet, nil
}

func GetPetTypes(ctx context.Context, db pgxutil.DB) ([]*PetType, error) {
	return pgxutil.Select(ctx, db, "select id, name from types order by name", nil, pgx.RowToAddrOfStructByPos[PetType])
}

// InsertPet inserts pet and returns its new ID. pet.Type is the name of an existing pet type.
func InsertPet(ctx context.Context, db pgxutil.DB, pet *Pet) (int32, error) {
	var id int32
	err := db.QueryRow(ctx,
		`insert into pets (name, birth_date, type_id, owner_id)
select $1, $2, types.id, $4
from types
where types.name = $3
returning pets.id`,
		pet.Name, pet.BirthDate, pet.Type, pet.OwnerID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPetTypeNotFound
		}
		return 0, err
	}

	return id, nil
}

// UpdatePet writes the name, birth date, and type of pet to the row with pet.ID and pet.OwnerID.
func UpdatePet(ctx context.Context, db pgxutil.DB, pet *Pet) error {
	var typeID int32
	err := db.QueryRow(ctx, "select id from types where name = $1", pet.Type).Scan(&typeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrPetTypeNotFound
		}
		return err
	}

	ct, err := db.Exec(ctx,
		`update pets
set name = $3,
	birth_date = $4,
	type_id = $5
where id = $1 and owner_id = $2`,
		pet.ID, pet.OwnerID, pet.Name, pet.BirthDate, typeID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrPetNotFound
	}

	return nil
}

// InsertVisit inserts visit and returns its new ID.
func InsertVisit(ctx context.Context, db pgxutil.DB, visit *Visit) (int32, error) {
	return pgxutil.InsertRowReturning(ctx, db, "visits", map[string]any{
		"pet_id":      visit.PetID,
		"visit_date":  visit.Date,
		"description": visit.Description,
	},
		"id",
		pgx.RowTo[int32],
	)
}
