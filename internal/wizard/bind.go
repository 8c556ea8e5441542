package wizard

import (
	"net/url"
	"strings"
)

// Bind copies the posted fields of one step into the form. Fields of other
// steps are left alone, so values survive moving back and forth.
func (f *Form) Bind(step Step, v url.Values) {
	text := func(name string) string { return strings.TrimSpace(v.Get(name)) }
	check := func(name string) bool {
		switch v.Get(name) {
		case "on", "true", "1", "yes":
			return true
		}
		return false
	}

	switch step {
	case StepEventDetails:
		f.EventDetails = EventDetails{
			Organization:  text("organization"),
			EventName:     text("event_name"),
			EventDate:     text("event_date"),
			Venue:         text("venue"),
			VenueAddress:  text("venue_address"),
			AttendeeCount: text("attendee_count"),
			ContactName:   text("contact_name"),
			ContactEmail:  text("contact_email"),
			ContactPhone:  text("contact_phone"),
		}
	case StepProgram:
		f.Program = Program{
			ProgramType:  text("program_type"),
			ProgramTitle: text("program_title"),
			StartTime:    text("start_time"),
			Length:       text("length"),
			QAIncluded:   check("qa_included"),
			Description:  text("description"),
		}
	case StepTravel:
		f.Travel = Travel{
			FlyInDate:        text("fly_in_date"),
			FlyOutDate:       text("fly_out_date"),
			DepartureAirport: text("departure_airport"),
			HotelName:        text("hotel_name"),
			HotelAddress:     text("hotel_address"),
			GroundTransport:  text("ground_transport"),
			Notes:            text("notes"),
		}
	case StepCommitments:
		f.Commitments = Commitments{
			RecordingAllowed: check("recording_allowed"),
			Livestream:       check("livestream"),
			MeetAndGreet:     check("meet_and_greet"),
			BookSigning:      check("book_signing"),
			MediaInterviews:  check("media_interviews"),
			DressCode:        text("dress_code"),
			AVNotes:          text("av_notes"),
			SpecialRequests:  text("special_requests"),
		}
	case StepConfirm:
		f.Confirmation.Name = text("name")
		f.Confirmation.Title = text("title")
		f.Confirmation.Email = text("email")
		f.Confirmation.AgreedToTerms = check("agreed_to_terms")
	}
}

// ProgramTypes are the options offered on the program step.
var ProgramTypes = []string{"Keynote", "Workshop", "Panel", "Fireside Chat", "Emcee", "Virtual Keynote"}
