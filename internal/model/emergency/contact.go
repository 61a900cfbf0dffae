package emergency

import (
	"regexp"
	"strings"
)

// Relationship of a trusted contact to the user.
type Relationship string

const (
	RelationshipFamily    Relationship = "family"
	RelationshipFriend    Relationship = "friend"
	RelationshipPartner   Relationship = "partner"
	RelationshipTherapist Relationship = "therapist"
	RelationshipOther     Relationship = "other"
)

// Valid reports whether the relationship is one of the known values.
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipFamily, RelationshipFriend, RelationshipPartner, RelationshipTherapist, RelationshipOther:
		return true
	}
	return false
}

// Contact is a trusted person alerts are delivered to. Owned by exactly one
// profile.
type Contact struct {
	Name            string       `json:"name"`
	Phone           string       `json:"phone"`
	Relationship    Relationship `json:"relationship"`
	WhatsAppEnabled bool         `json:"whatsappEnabled"`
}

// phonePattern requires a leading + followed by 10 to 15 digits.
var phonePattern = regexp.MustCompile(`^\+\d{10,15}$`)

var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// NormalizePhone strips the separators people type into phone fields so that
// "+91 98765-43210" and "+919876543210" validate the same way.
func NormalizePhone(raw string) string {
	return phoneSeparators.Replace(strings.TrimSpace(raw))
}

// Validate checks the contact fields and returns a copy with the phone
// normalized. It returns a *ValidationError describing the first problem.
func (c Contact) Validate() (Contact, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Contact{}, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	c.Name = strings.TrimSpace(c.Name)

	c.Phone = NormalizePhone(c.Phone)
	if !phonePattern.MatchString(c.Phone) {
		return Contact{}, &ValidationError{Field: "phone", Reason: "must match +<countrycode><number> with 10-15 digits"}
	}

	if c.Relationship == "" {
		c.Relationship = RelationshipOther
	}
	if !c.Relationship.Valid() {
		return Contact{}, &ValidationError{Field: "relationship", Reason: "must be family, friend, partner, therapist or other"}
	}
	return c, nil
}
