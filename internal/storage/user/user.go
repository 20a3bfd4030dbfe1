package user

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

type Geo struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Address is stored inline with its user and has no identity of its own.
type Address struct {
	Street  string `json:"street" bson:"street"`
	City    string `json:"city" bson:"city"`
	Zipcode string `json:"zipcode" bson:"zipcode"`
	Geo     Geo    `json:"geo" bson:"geo"`
}

type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Company      string    `json:"company"`
	Address      Address   `json:"address"`
	Confirmation string    `json:"confirmation,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Degrees accepts a JSON number or a numeric string. Anything else decodes to
// NaN so that range validation reports it instead of the whole body failing.
type Degrees float64

func (d *Degrees) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(b, `"`))
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*d = Degrees(math.NaN())
		return nil
	}
	*d = Degrees(v)
	return nil
}

type GeoInput struct {
	Lat *Degrees `json:"lat" validate:"required,min=-90,max=90"`
	Lng *Degrees `json:"lng" validate:"required,min=-180,max=180"`
}

type AddressInput struct {
	Street  string   `json:"street" validate:"required"`
	City    string   `json:"city" validate:"required"`
	Zipcode string   `json:"zipcode" validate:"required"`
	Geo     GeoInput `json:"geo"`
}

// Input is the client payload for create and replace. Field order is the order
// in which violations are reported.
type Input struct {
	Name         string       `json:"name" validate:"min=2,max=50"`
	Email        string       `json:"email" validate:"email"`
	Phone        string       `json:"phone" validate:"phone"`
	Company      string       `json:"company" validate:"min=2,max=100"`
	Address      AddressInput `json:"address"`
	Confirmation string       `json:"confirmation" validate:"omitempty,min=2,max=100"`
}

// UnmarshalJSON decodes field by field so that a value of the wrong JSON type
// becomes a validation violation instead of failing the whole body. Numbers
// and booleans keep their literal text; objects, arrays and null become empty.
func (in *Input) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*in = Input{
		Name:         text(raw["name"]),
		Email:        text(raw["email"]),
		Phone:        text(raw["phone"]),
		Company:      text(raw["company"]),
		Confirmation: text(raw["confirmation"]),
	}
	in.Address = decodeAddress(raw["address"])
	return nil
}

func decodeAddress(b json.RawMessage) AddressInput {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return AddressInput{}
	}
	a := AddressInput{
		Street:  text(raw["street"]),
		City:    text(raw["city"]),
		Zipcode: text(raw["zipcode"]),
	}
	var geo map[string]json.RawMessage
	if err := json.Unmarshal(raw["geo"], &geo); err == nil {
		a.Geo = GeoInput{Lat: degrees(geo["lat"]), Lng: degrees(geo["lng"])}
	}
	return a
}

func text(b json.RawMessage) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ""
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ""
		}
		return s
	case '{', '[', 'n':
		return ""
	}
	return string(b)
}

func degrees(b json.RawMessage) *Degrees {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	var d Degrees
	_ = d.UnmarshalJSON(b)
	return &d
}

// Normalize trims every text field and lowercases the email.
func (in *Input) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Company = strings.TrimSpace(in.Company)
	in.Address.Street = strings.TrimSpace(in.Address.Street)
	in.Address.City = strings.TrimSpace(in.Address.City)
	in.Address.Zipcode = strings.TrimSpace(in.Address.Zipcode)
	in.Confirmation = strings.TrimSpace(in.Confirmation)
}

// User copies the mutable fields into a record. Call it on validated input only.
func (in Input) User() User {
	u := User{
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Company:      in.Company,
		Confirmation: in.Confirmation,
		Address: Address{
			Street:  in.Address.Street,
			City:    in.Address.City,
			Zipcode: in.Address.Zipcode,
		},
	}
	if in.Address.Geo.Lat != nil {
		u.Address.Geo.Lat = float64(*in.Address.Geo.Lat)
	}
	if in.Address.Geo.Lng != nil {
		u.Address.Geo.Lng = float64(*in.Address.Geo.Lng)
	}
	return u
}
