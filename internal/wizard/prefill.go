package wizard

import (
	"strconv"

	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// Prefill starts a form from what the accepted proposal already says.
func Prefill(p *models.Proposal) Form {
	org := p.ClientCompany
	if org == "" {
		org = p.ClientName
	}
	f := Form{
		EventDetails: EventDetails{
			Organization: org,
			EventName:    p.EventTitle,
			Venue:        p.EventLocation,
			ContactName:  p.ClientName,
			ContactEmail: p.ClientEmail,
		},
		Confirmation: Confirmation{
			Name:  p.ClientName,
			Email: p.ClientEmail,
		},
	}
	if p.EventDate != nil {
		f.EventDetails.EventDate = p.EventDate.Format("2006-01-02")
	}
	if p.AttendeeCount > 0 {
		f.EventDetails.AttendeeCount = strconv.Itoa(p.AttendeeCount)
	}
	if p.AcceptedBy != nil && *p.AcceptedBy != "" {
		f.Confirmation.Name = *p.AcceptedBy
	}
	if p.AcceptedTitle != nil {
		f.Confirmation.Title = *p.AcceptedTitle
	}
	if p.EventFormat == models.FormatVirtual {
		f.Program.ProgramType = "Virtual Keynote"
	}
	return f
}
