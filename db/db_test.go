package db_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/petclinic-e2e/test/testutil"
	"github.com/jackc/testdb"
	"github.com/stretchr/testify/require"
)

var TestDBManager *testdb.Manager

func TestMain(m *testing.M) {
	if testPGDatabase := os.Getenv("TEST_PGDATABASE"); testPGDatabase != "" {
		os.Setenv("PGDATABASE", testPGDatabase)
	}

	TestDBManager = testutil.InitTestDBManager(m)
	os.Exit(m.Run())
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func visitDates(pet *db.Pet) []string {
	dates := make([]string, len(pet.Visits))
	for i, v := range pet.Visits {
		dates[i] = v.Date.Format("2006-01-02")
	}
	return dates
}

func TestParseVisitOrder(t *testing.T) {
	require.Equal(t, db.VisitOrderDesc, db.ParseVisitOrder("desc"))
	require.Equal(t, db.VisitOrderAsc, db.ParseVisitOrder("asc"))
	require.Equal(t, db.VisitOrderAsc, db.ParseVisitOrder(""))
	require.Equal(t, db.VisitOrderAsc, db.ParseVisitOrder("DESC"))
}

func TestGetOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	conn := testutil.AcquireDB(t, ctx, TestDBManager).Connect(t, ctx)

	owner, err := db.GetOwner(ctx, conn, 1)
	require.NoError(t, err)
	require.Equal(t, &db.Owner{ID: 1, FirstName: "George", LastName: "Franklin", Address: "110 W. Liberty St.", City: "Madison", Telephone: "6085551023"}, owner)
	require.Equal(t, "George Franklin", owner.FullName())

	_, err = db.GetOwner(ctx, conn, 99999)
	require.ErrorIs(t, err, db.ErrOwnerNotFound)
}

func TestUpdateOwner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	conn := testutil.AcquireDB(t, ctx, TestDBManager).Connect(t, ctx)

	owner, err := db.GetOwner(ctx, conn, 1)
	require.NoError(t, err)
	owner.City = "Sun Prairie"
	require.NoError(t, db.UpdateOwner(ctx, conn, owner))

	updated, err := db.GetOwner(ctx, conn, 1)
	require.NoError(t, err)
	require.Equal(t, owner, updated)

	err = db.UpdateOwner(ctx, conn, &db.Owner{ID: 99999, FirstName: "No", LastName: "One"})
	require.ErrorIs(t, err, db.ErrOwnerNotFound)
}

func TestGetPetsOrdersVisits(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	conn := testutil.AcquireDB(t, ctx, TestDBManager).Connect(t, ctx)

	pets, err := db.GetPets(ctx, conn, 1, db.VisitOrderAsc)
	require.NoError(t, err)
	require.Len(t, pets, 3)
	require.Equal(t, "Leo", pets[0].Name)
	require.Equal(t, "cat", pets[0].Type)
	require.Equal(t, "Max", pets[1].Name)
	require.Equal(t, "Maxwell", pets[2].Name)
	require.Equal(t, []string{"2012-11-04", "2013-01-01", "2013-01-04"}, visitDates(pets[0]))
	require.Equal(t, []string{"2011-05-30", "2013-03-12"}, visitDates(pets[1]))

	pets, err = db.GetPets(ctx, conn, 1, db.VisitOrderDesc)
	require.NoError(t, err)
	require.Equal(t, []string{"2013-01-04", "2013-01-01", "2012-11-04"}, visitDates(pets[0]))

	pets, err = db.GetPets(ctx, conn, 99999, db.VisitOrderAsc)
	require.NoError(t, err)
	require.Empty(t, pets)
}

func TestInsertAndUpdatePet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	conn := testutil.AcquireDB(t, ctx, TestDBManager).Connect(t, ctx)

	id, err := db.InsertPet(ctx, conn, &db.Pet{Name: "Rosy", BirthDate: date("2019-03-14"), Type: "hamster", OwnerID: 1})
	require.NoError(t, err)

	pet, err := db.GetPet(ctx, conn, 1, id)
	require.NoError(t, err)
	require.Equal(t, "Rosy", pet.Name)
	require.Equal(t, "hamster", pet.Type)
	require.True(t, date("2019-03-14").Equal(pet.BirthDate))

	pet.Name = "Rosie"
	pet.Type = "cat"
	require.NoError(t, db.UpdatePet(ctx, conn, pet))

	pet, err = db.GetPet(ctx, conn, 1, id)
	require.NoError(t, err)
	require.Equal(t, "Rosie", pet.Name)
	require.Equal(t, "cat", pet.Type)

	// Pet 4 belongs to owner 2.
	_, err = db.GetPet(ctx, conn, 1, 4)
	require.ErrorIs(t, err, db.ErrPetNotFound)

	_, err = db.InsertPet(ctx, conn, &db.Pet{Name: "Nessie", BirthDate: date("2019-03-14"), Type: "dragon", OwnerID: 1})
	require.ErrorIs(t, err, db.ErrPetTypeNotFound)

	pet.Type = "dragon"
	require.ErrorIs(t, db.UpdatePet(ctx, conn, pet), db.ErrPetTypeNotFound)
}

func TestInsertVisit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	conn := testutil.AcquireDB(t, ctx, TestDBManager).Connect(t, ctx)

	_, err := db.InsertVisit(ctx, conn, &db.Visit{PetID: 2, Date: date("2012-01-01"), Description: "dental cleaning"})
	require.NoError(t, err)

	pets, err := db.GetPets(ctx, conn, 1, db.VisitOrderAsc)
	require.NoError(t, err)
	require.Equal(t, []string{"2011-05-30", "2012-01-01", "2013-03-12"}, visitDates(pets[1]))
}

func TestGetPetTypes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	conn := testutil.AcquireDB(t, ctx, TestDBManager).Connect(t, ctx)

	types, err := db.GetPetTypes(ctx, conn)
	require.NoError(t, err)
	names := make([]string, len(types))
	for i, pt := range types {
		names[i] = pt.Name
	}
	require.Equal(t, []string{"bird", "cat", "dog", "hamster", "lizard", "snake"}, names)
}
