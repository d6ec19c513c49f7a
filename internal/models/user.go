package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleBasic      Role = "BASIC"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

type Address struct {
	Street  string `bson:"street" json:"street"`
	City    string `bson:"city" json:"city"`
	Postal  string `bson:"postal" json:"postal"`
	Country string `bson:"country" json:"country"`
}

// Billing is an embedded sub-record of User. It has no identity or
// lifecycle of its own; records are matched by Name on update.
type Billing struct {
	Name    string  `bson:"name" json:"name"`
	ICO     string  `bson:"ico,omitempty" json:"ICO,omitempty"`
	DIC     string  `bson:"dic,omitempty" json:"DIC,omitempty"`
	ICDPH   string  `bson:"icdph,omitempty" json:"ICDPH,omitempty"`
	IBAN    string  `bson:"iban,omitempty" json:"IBAN,omitempty"`
	SWIFT   string  `bson:"swift,omitempty" json:"SWIFT,omitempty"`
	Address Address `bson:"address" json:"address"`
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	Password     string             `bson:"password" json:"-"`
	Name         string             `bson:"name" json:"name"`
	Organisation string             `bson:"organisation" json:"organisation"`
	Telephone    string             `bson:"telephone,omitempty" json:"telephone,omitempty"`
	Role         Role               `bson:"role" json:"role"`
	Permissions  []string           `bson:"permissions" json:"permissions"`
	Verified     bool               `bson:"verified" json:"verified"`
	Billings     []Billing          `bson:"billings" json:"billings"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u User) EmailDomain() string {
	_, domain, found := strings.Cut(u.Email, "@")
	if !found {
		return ""
	}
	return domain
}

// Institutional reports whether the account belongs to one of the
// recognized university domains that receive a fixed billing record
// on registration.
func (u User) Institutional() bool {
	switch u.EmailDomain() {
	case "flaw.uniba.sk", "uniba.sk":
		return true
	}
	return false
}

// InstitutionalBilling is the billing record attached to accounts
// registered under a recognized university domain.
func InstitutionalBilling() Billing {
	return Billing{
		Name:  "Univerzita Komenského v Bratislave, Právnická fakulta",
		ICO:   "00397865",
		DIC:   "2020845332",
		ICDPH: "SK2020845332",
		Address: Address{
			Street:  "Šafárikovo nám. 6",
			City:    "Bratislava",
			Postal:  "81000",
			Country: "Slovensko",
		},
	}
}
