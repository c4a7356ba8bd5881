// Package view renders the pet clinic pages. Components are written in templ; run templ generate after editing a
// .templ file.
package view

//go:generate templ generate

import (
	"fmt"

	"github.com/jackc/petclinic-e2e/db"
	"github.com/jackc/petclinic-e2e/lib/formdata"
)

const dateLayout = "2006-01-02"

// CSRFFieldName is the name of the hidden form field carrying the CSRF token.
const CSRFFieldName = "csrf_token"

// Flash holds the one-time messages shown after a create or update.
type Flash struct {
	Success string
	Error   string
}

type OwnerDetailsPage struct {
	Owner      *db.Owner
	Pets       []*db.Pet
	VisitOrder db.VisitOrder
	Flash      Flash
}

type FormPage struct {
	Heading     string
	Action      string
	CSRFToken   string
	SubmitLabel string
	Data        *formdata.FormData
	Flash       Flash
}

func ownerPath(owner *db.Owner) string {
	return fmt.Sprintf("/owners/%d", owner.ID)
}

func petPath(owner *db.Owner, pet *db.Pet) string {
	return fmt.Sprintf("%s/pets/%d", ownerPath(owner), pet.ID)
}

func inputType(field *formdata.Field) string {
	if field.Type == "date" {
		return "date"
	}
	return "text"
}

func fieldError(data *formdata.FormData, name string) string {
	if fieldData := data.FieldValues[name]; fieldData != nil {
		return fieldData.Error
	}
	return ""
}
