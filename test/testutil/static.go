package testutil

import (
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/petclinic-e2e/view"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// StaticOwner is the owner served by NewStaticHandler.
var StaticOwner = db.Owner{ID: 1, FirstName: "George", LastName: "Franklin", Address: "110 W. Liberty St.", City: "Madison", Telephone: "6085551023"}

// StaticPets returns a fresh copy of the pets of StaticOwner with visits in ascending date order.
func StaticPets() []*db.Pet {
	return []*db.Pet{
		{
			ID: 1, Name: "Leo", BirthDate: date("2010-09-07"), Type: "cat", OwnerID: 1,
			Visits: []*db.Visit{
				{ID: 3, PetID: 1, Date: date("2012-11-04"), Description: "neutered"},
				{ID: 1, PetID: 1, Date: date("2013-01-01"), Description: "rabies shot"},
				{ID: 2, PetID: 1, Date: date("2013-01-04"), Description: "spayed"},
			},
		},
		{ID: 2, Name: "Max", BirthDate: date("2012-08-06"), Type: "dog", OwnerID: 1},
		{
			ID: 3, Name: "Maxwell", BirthDate: date("2011-04-17"), Type: "bird", OwnerID: 1,
			Visits: []*db.Visit{
				{ID: 6, PetID: 3, Date: date("2015-06-21"), Description: "wing clipping"},
			},
		},
	}
}

// NewStaticHandler serves the owner details page of StaticOwner without a database. flash is shown on every
// request. Pages linked from the owner details page render a placeholder and every other owner is not found.
func NewStaticHandler(flash view.Flash) http.Handler {
	router := chi.NewRouter()

	router.Get("/owners/1", func(w http.ResponseWriter, r *http.Request) {
		order := db.ParseVisitOrder(r.URL.Query().Get("sortOrder"))
		pets := StaticPets()
		if order == db.VisitOrderDesc {
			for _, pet := range pets {
				sort.Slice(pet.Visits, func(i, j int) bool { return pet.Visits[i].Date.After(pet.Visits[j].Date) })
			}
		}

		owner := StaticOwner
		view.OwnerDetails(&view.OwnerDetailsPage{
			Owner:      &owner,
			Pets:       pets,
			VisitOrder: order,
			Flash:      flash,
		}).Render(r.Context(), w)
	})

	router.Get("/owners/1/*", func(w http.ResponseWriter, r *http.Request) {
		view.NotFound(r.URL.Path).Render(r.Context(), w)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		view.NotFound("Owner not found").Render(r.Context(), w)
	})

	return router
}
