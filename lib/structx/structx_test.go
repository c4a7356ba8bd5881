package structx_test

import (
	"testing"
	"time"

	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/petclinic-e2e/lib/structx"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	owner := db.Owner{ID: 1, FirstName: "George", LastName: "Franklin"}

	require.Equal(t, "George", structx.Get(owner, "FirstName"))
	require.Equal(t, int32(1), structx.Get(owner, "ID"))
}

func TestGetPointer(t *testing.T) {
	visitDate := time.Date(2013, 1, 4, 0, 0, 0, 0, time.UTC)
	visit := &db.Visit{PetID: 1, Date: visitDate, Description: "spayed"}

	require.Equal(t, visitDate, structx.Get(visit, "Date"))
	require.Equal(t, "spayed", structx.Get(visit, "Description"))
}
