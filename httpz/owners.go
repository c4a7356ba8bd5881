package httpz

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/csrf"
	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/petclinic-e2e/lib/formdata"
	"github.com/jackc/petclinic-e2e/view"
)

const (
	msgOwnerUpdated    = "Owner Values Updated"
	msgOwnerIDMismatch = "Owner ID mismatch. Please try again."
	msgPetAdded        = "New Pet has been Added"
	msgPetUpdated      = "Pet details has been edited"
	msgVisitBooked     = "Your visit has been booked"
)

var ownerForm = &formdata.Form{
	Fields: []*formdata.Field{
		{Name: "id", Type: "hidden", StructField: "ID"},
		{Label: "First Name", Name: "firstName", Type: "text", Required: true, StructField: "FirstName"},
		{Label: "Last Name", Name: "lastName", Type: "text", Required: true, StructField: "LastName"},
		{Label: "Address", Name: "address", Type: "text", Required: true, StructField: "Address"},
		{Label: "City", Name: "city", Type: "text", Required: true, StructField: "City"},
		{
			Label: "Telephone", Name: "telephone", Type: "text", Required: true, StructField: "Telephone",
			Pattern: regexp.MustCompile(`\A\d{10}\z`), PatternMessage: "Telephone must be a 10-digit number",
		},
	},
}

func petForm(petTypes []*db.PetType) *formdata.Form {
	options := make([]string, len(petTypes))
	for i, pt := range petTypes {
		options[i] = pt.Name
	}

	return &formdata.Form{
		Fields: []*formdata.Field{
			{Label: "Name", Name: "name", Type: "text", Required: true, StructField: "Name"},
			{Label: "Birth Date", Name: "birthDate", Type: "date", Required: true, StructField: "BirthDate"},
			{Label: "Type", Name: "type", Type: "select", Required: true, StructField: "Type", Options: options},
		},
	}
}

var visitForm = &formdata.Form{
	Fields: []*formdata.Field{
		{Label: "Date", Name: "date", Type: "date", Required: true, StructField: "Date"},
		{Label: "Description", Name: "description", Type: "text", Required: true, StructField: "Description"},
	},
}

func paramInt32(params map[string]any, name string) (int32, bool) {
	s, _ := params[name].(string)
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

func ownerFromParams(ctx context.Context, env *environment, params map[string]any) (*db.Owner, error) {
	ownerID, ok := paramInt32(params, "ownerID")
	if !ok {
		return nil, db.ErrOwnerNotFound
	}
	return db.GetOwner(ctx, env.dbsession, ownerID)
}

func petFromParams(ctx context.Context, env *environment, owner *db.Owner, params map[string]any) (*db.Pet, error) {
	petID, ok := paramInt32(params, "petID")
	if !ok {
		return nil, db.ErrPetNotFound
	}
	return db.GetPet(ctx, env.dbsession, owner.ID, petID)
}

func ownerPath(owner *db.Owner) string {
	return fmt.Sprintf("/owners/%d", owner.ID)
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, env *environment, path string, flash view.Flash) error {
	err := setFlash(w, env, flash)
	if err != nil {
		return err
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
	return nil
}

func renderForm(ctx context.Context, w http.ResponseWriter, r *http.Request, status int, page *view.FormPage) error {
	page.CSRFToken = csrf.Token(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	return view.Form(page).Render(ctx, w)
}

func showOwner(ctx context.Context, w http.ResponseWriter, r *http.Request, env *environment, params map[string]any) error {
	owner, err := ownerFromParams(ctx, env, params)
	if err != nil {
		return err
	}

	sortOrder, _ := params["sortOrder"].(string)
	visitOrder := db.ParseVisitOrder(sortOrder)

	pets, err := db.GetPets(ctx, env.dbsession, owner.ID, visitOrder)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return view.OwnerDetails(&view.OwnerDetailsPage{
		Owner:      owner,
		Pets:       pets,
		VisitOrder: visitOrder,
		Flash:      takeFlash(w, r, env),
	}).Render(ctx, w)
}

func editOwnerForm(ctx context.Context, w http.ResponseWriter, r *http.Request, env *environment, params map[string]any) error {
	owner, err := ownerFromParams(ctx, env, params)
	if err != nil {
		return err
	}

	return renderForm(ctx, w, r, http.StatusOK, &view.FormPage{
		Heading:     "Owner",
		Action:      ownerPath(owner) + "/edit",
		SubmitLabel: "Update Owner",
		Data:        ownerForm.LoadStruct(owner),
		Flash:       takeFlash(w, r, env),
	})
}

func updateOwner(ctx context.Context, w http.ResponseWriter, r *http.Request, env *environment, params map[string]any) error {
	owner, err := ownerFromParams(ctx, env, params)
	if err != nil {
		return err
	}

	fd := ownerForm.Parse(params)
	if id := fd.String("id"); id != "" && id != strconv.FormatInt(int64(owner.ID), 10) {
		return redirectWithFlash(w, r, env, ownerPath(owner)+"/edit", view.Flash{Error: msgOwnerIDMismatch})
	}

	if !fd.Valid() {
		return renderForm(ctx, w, r, http.StatusUnprocessableEntity, &view.FormPage{
			Heading:     "Owner",
			Action:      ownerPath(owner) + "/edit",
			SubmitLabel: "Update Owner",
			Data:        fd,
		})
	}

	owner.FirstName = fd.String("firstName")
	owner.LastName = fd.String("lastName")
	owner.Address = fd.String("address")
	owner.City = fd.String("city")
	owner.Telephone = fd.String("telephone")
	err = db.UpdateOwner(ctx, env.dbsession, owner)
	if err != nil {
		return err
	}

	return redirectWithFlash(w, r, env, ownerPath(owner), view.Flash{Success: msgOwnerUpdated})
}

// validatePet adds the errors formdata cannot detect: future birth dates and a name another pet of the owner uses.
func validatePet(ctx context.Context, env *environment, owner *db.Owner, petID int32, fd *formdata.FormData) error {
	if birthDate := fd.Time("birthDate"); birthDate.After(time.Now()) {
		fd.FieldValues["birthDate"].Error = "must not be in the future"
	}

	name := fd.String("name")
	if name == "" {
		return nil
	}

	pets, err := db.GetPets(ctx, env.dbsession, owner.ID, db.VisitOrderAsc)
	if err != nil {
		return err
	}
	for _, pet := range pets {
		if pet.ID != petID && strings.EqualFold(pet.Name, name) {
			fd.FieldValues["name"].Error = "is already in use"
			break
		}
	}

	return nil
}

func newPetForm(ctx context.Context, w http.ResponseWriter, r *http.Request, env *environment, params map[string]any) error {
	owner, err := ownerFromParams(ctx, env, params)
	if err != nil {
		return err
	}

	petTypes, err := db.GetPetTypes(ctx, env.dbsession)
	if err != nil {
		return err
	}

	return renderForm(ctx, w, r, http.StatusOK, &view.FormPage{
		Heading:     "New Pet for " + owner.FullName(),
		Action:      ownerPath(owner) + "/pets/new",
		SubmitLabel: "Add Pet",
		Data:        petForm(petTypes).New(),
	})
}

func createPet(ctx context.Context, w http.ResponseWriter, r *http.Request, env *environment, params map[string]any) error {
	owner, err := ownerFromParams(ctx, env, params)
	if err != nil {
		return err
	}

	petTypes, err := db.GetPetTypes(ctx, env.dbsession)
	if err != nil {
		return err
	}

	fd := petForm(petTypes).Parse(params)
	err = validatePet(ctx, env, owner, 0, fd)
	if err != nil {
		return err
	}

	if !fd.Valid() {
		return renderForm(ctx, w, r, http.StatusUnprocessableEntity, &view.FormPage{
			Heading:     "New Pet for " + owner.FullName(),
			Action:      ownerPath(owner) + "/pets/new",
			SubmitLabel: "Add Pet",
			Data:        fd,
		})
	}

	_, err = db.InsertPet(ctx, env.dbsession, &db.Pet{
		Name:      fd.String("name"),
		BirthDate: fd.Time("birthDate"),
		Type:      fd.String("type"),
		OwnerID:   owner.ID,
	})
	if err != nil {
		return err
	}

	return redirectWithFlash(w, r, env, ownerPath(owner), view.Flash{Success: msgPetAdded})
}

func editPetForm(ctx context.Context, w http.ResponseWriter, r *http.Request, env *environment, params map[string]any) error {
	owner, err := ownerFromParams(ctx, env, params)
	if err != nil {
		return err
	}

	pet, err := petFromParams(ctx, env, owner, params)
	if err != nil {
		return err
	}

	petTypes, err := db.GetPetTypes(ctx, env.dbsession)
	if err != nil {
		return err
	}

	return renderForm(ctx, w, r, http.StatusOK, &view.FormPage{
		Heading:     "Pet",
		Action:      fmt.Sprintf("%s/pets/%d/edit", ownerPath(owner), pet.ID),
		SubmitLabel: "Update Pet",
		Data:        petForm(petTypes).LoadStruct(pet),
	})
}

func updatePet(ctx context.Context, w http.ResponseWriter, r *http.Request, env *environment, params map[string]any) error {
	owner, err := ownerFromParams(ctx, env, params)
	if err != nil {
		return err
	}

	pet, err := petFromParams(ctx, env, owner, params)
	if err != nil {
		return err
	}

	petTypes, err := db.GetPetTypes(ctx, env.dbsession)
	if err != nil {
		return err
	}

	fd := petForm(petTypes).Parse(params)
	err = validatePet(ctx, env, owner, pet.ID, fd)
	if err != nil {
		return err
	}

	if !fd.Valid() {
		return renderForm(ctx, w, r, http.StatusUnprocessableEntity, &view.FormPage{
			Heading:     "Pet",
			Action:      fmt.Sprintf("%s/pets/%d/edit", ownerPath(owner), pet.ID),
			SubmitLabel: "Update Pet",
			Data:        fd,
		})
	}

	pet.Name = fd.String("name")
	pet.BirthDate = fd.Time("birthDate")
	pet.Type = fd.String("type")
	err = db.UpdatePet(ctx, env.dbsession, pet)
	if err != nil {
		return err
	}

	return redirectWithFlash(w, r, env, ownerPath(owner), view.Flash{Success: msgPetUpdated})
}

func newVisitForm(ctx context.Context, w http.ResponseWriter, r *http.Request, env *environment, params map[string]any) error {
	owner, err := ownerFromParams(ctx, env, params)
	if err != nil {
		return err
	}

	pet, err := petFromParams(ctx, env, owner, params)
	if err != nil {
		return err
	}

	return renderForm(ctx, w, r, http.StatusOK, &view.FormPage{
		Heading:     "New Visit for " + pet.Name,
		Action:      fmt.Sprintf("%s/pets/%d/visits/new", ownerPath(owner), pet.ID),
		SubmitLabel: "Add Visit",
		Data:        visitForm.LoadStruct(&db.Visit{Date: time.Now()}),
	})
}

func createVisit(ctx context.Context, w http.ResponseWriter, r *http.Request, env *environment, params map[string]any) error {
	owner, err := ownerFromParams(ctx, env, params)
	if err != nil {
		return err
	}

	pet, err := petFromParams(ctx, env, owner, params)
	if err != nil {
		return err
	}

	fd := visitForm.Parse(params)
	if !fd.Valid() {
		return renderForm(ctx, w, r, http.StatusUnprocessableEntity, &view.FormPage{
			Heading:     "New Visit for " + pet.Name,
			Action:      fmt.Sprintf("%s/pets/%d/visits/new", ownerPath(owner), pet.ID),
			SubmitLabel: "Add Visit",
			Data:        fd,
		})
	}

	_, err = db.InsertVisit(ctx, env.dbsession, &db.Visit{
		PetID:       pet.ID,
		Date:        fd.Time("date"),
		Description: fd.String("description"),
	})
	if err != nil {
		return err
	}

	return redirectWithFlash(w, r, env, ownerPath(owner), view.Flash{Success: msgVisitBooked})
}
