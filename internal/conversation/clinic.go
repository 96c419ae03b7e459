package conversation

import "context"

// Contact is a structured contact card.
type Contact struct {
	Addresses []ContactAddress
	Emails    []ContactEmail
	Name      ContactName
	Org       ContactOrg
	Phones    []ContactPhone
	URLs      []ContactURL
}

type ContactAddress struct {
	Street      string
	City        string
	State       string
	Zip         string
	Country     string
	CountryCode string
	Type        string
}

type ContactEmail struct {
	Email string
	Type  string
}

type ContactName struct {
	FormattedName string
	FirstName     string
	LastName      string
	MiddleName    string
	Suffix        string
	Prefix        string
}

type ContactOrg struct {
	Company    string
	Department string
	Title      string
}

type ContactPhone struct {
	Phone string
	WaID  string
	Type  string
}

type ContactURL struct {
	URL  string
	Type string
}

// ClinicProfile is the fixed clinic data the bot shares with patients.
type ClinicProfile struct {
	Contact        Contact
	Location       Location
	SampleDocument Media
	Timezone       string
}

const (
	defaultClinicTimezone = "America/Lima"
	sampleDocumentURL     = "https://s3.us-east-1.amazonaws.com/muelita.dev/muelita-file.pdf"
)

// DefaultClinicProfile returns the Doctor Muelita branch in Yanahuara, Arequipa.
func DefaultClinicProfile() ClinicProfile {
	return ClinicProfile{
		Contact: Contact{
			Addresses: []ContactAddress{{
				Street:      "Manuel Aguirre 133-A, Yanahuara 04013",
				City:        "Arequipa",
				State:       "Arequipa",
				Zip:         "040126",
				Country:     "Perú",
				CountryCode: "PE",
				Type:        "WORK",
			}},
			Emails: []ContactEmail{{Email: "contacto@doctormuelita.com", Type: "WORK"}},
			Name: ContactName{
				FormattedName: "Doctor Muelita Contacto",
				FirstName:     "Doctor Muelita",
				LastName:      "Contacto",
			},
			Org: ContactOrg{
				Company:    "Doctor Muelita",
				Department: "Atención al Cliente",
				Title:      "Representante",
			},
			Phones: []ContactPhone{{Phone: "+51941409209", WaID: "51941409209", Type: "WORK"}},
			URLs:   []ContactURL{{URL: "https://www.doctormuelita.com/", Type: "WORK"}},
		},
		Location: Location{
			Latitude:  -16.402127340469868,
			Longitude: -71.5468061885345,
			Name:      "Doctor Muelita",
			Address:   "Manuel Aguirre 133a, Yanahuara, Aerquipa.",
		},
		SampleDocument: Media{
			Kind:    MediaDocument,
			URL:     sampleDocumentURL,
			Caption: msgSampleDocumentCaption,
		},
		Timezone: defaultClinicTimezone,
	}
}

// StaticMediaSource always returns the same document.
type StaticMediaSource struct {
	Media Media
}

func (s StaticMediaSource) SampleDocument(context.Context) (Media, error) {
	return s.Media, nil
}
