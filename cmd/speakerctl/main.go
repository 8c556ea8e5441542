// Package main is the entry point for the speakerctl back-office CLI.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/auth"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/firmoffers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/proposals"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/speakers"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/token"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/views"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/config"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/db"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/r2"
)

var rootCmd = &cobra.Command{
	Use:   "speakerctl",
	Short: "Speaker agency back-office CLI",
	Long:  `CLI tools for managing users, proposals, firm offers and speakers.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(dbCmd, usersCmd, proposalsCmd, offersCmd, dealsCmd, speakersCmd, mediaCmd)
}

// connectDB loads config and connects to the database.
func connectDB(ctx context.Context) (*db.DB, *config.Config, error) {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL not set")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return database, cfg, nil
}

// Database commands

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database operations",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, _, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := database.Migrate(ctx); err != nil {
			return err
		}
		fmt.Println("Schema applied")
		return nil
	},
}

func init() {
	dbCmd.AddCommand(migrateCmd)
}

// User commands

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage back-office users",
}

var (
	userEmail     string
	userPassword  string
	userFirstName string
	userLastName  string
	userRole      string
)

var createUserCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a back-office user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, _, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		u, err := auth.NewService(database).CreateUser(ctx, userEmail, userPassword, userFirstName, userLastName, userRole)
		if err != nil {
			return err
		}
		fmt.Printf("Created %s user #%d (%s)\n", u.Role, u.ID, u.Email)
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Reset a user's password",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, _, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := auth.NewService(database).SetPassword(ctx, userEmail, userPassword); err != nil {
			return err
		}
		fmt.Printf("Password updated for %s; existing sessions were signed out\n", userEmail)
		return nil
	},
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate",
	Short: "Deactivate a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, _, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := auth.NewService(database).DeactivateUser(ctx, userEmail); err != nil {
			return err
		}
		fmt.Printf("Deactivated %s\n", userEmail)
		return nil
	},
}

var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, _, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		users, err := auth.NewService(database).ListUsers(ctx)
		if err != nil {
			return err
		}
		for _, u := range users {
			active := ""
			if !u.IsActive {
				active = " [inactive]"
			}
			fmt.Printf("#%d: %s <%s> %s%s\n", u.ID, u.DisplayName(), u.Email, u.Role, active)
		}
		return nil
	},
}

func init() {
	createUserCmd.Flags().StringVar(&userEmail, "email", "", "Email address")
	createUserCmd.Flags().StringVar(&userPassword, "password", "", "Password (at least 8 characters)")
	createUserCmd.Flags().StringVar(&userFirstName, "first-name", "", "First name")
	createUserCmd.Flags().StringVar(&userLastName, "last-name", "", "Last name")
	createUserCmd.Flags().StringVar(&userRole, "role", auth.RoleAdmin, "Role (admin, staff)")
	createUserCmd.MarkFlagRequired("email")
	createUserCmd.MarkFlagRequired("password")

	passwdCmd.Flags().StringVar(&userEmail, "email", "", "Email address")
	passwdCmd.Flags().StringVar(&userPassword, "password", "", "New password")
	passwdCmd.MarkFlagRequired("email")
	passwdCmd.MarkFlagRequired("password")

	deactivateCmd.Flags().StringVar(&userEmail, "email", "", "Email address")
	deactivateCmd.MarkFlagRequired("email")

	usersCmd.AddCommand(createUserCmd, passwdCmd, deactivateCmd, listUsersCmd)
}

// Proposal commands

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "Inspect proposals",
}

var (
	proposalStatus string
	proposalLimit  int
	exportFormat   string
)

func proposalService(database *db.DB, cfg *config.Config) *proposals.Service {
	return proposals.NewService(proposals.NewPGStore(database), nil, cfg.BaseURL)
}

func proposalFilter() (proposals.ListFilter, error) {
	f := proposals.ListFilter{Limit: proposalLimit}
	if proposalStatus != "" {
		st, err := workflow.ParseProposalStatus(proposalStatus)
		if err != nil {
			return f, err
		}
		f.Statuses = []workflow.ProposalStatus{st}
	}
	return f, nil
}

var listProposalsCmd = &cobra.Command{
	Use:   "list",
	Short: "List proposals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, cfg, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		f, err := proposalFilter()
		if err != nil {
			return err
		}
		list, total, err := proposalService(database, cfg).List(ctx, f)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, p := range list {
			expired := ""
			if !p.Status.Terminal() && workflow.Expired(p.ValidUntil, now) {
				expired = " [expired]"
			}
			fmt.Printf("%s: %s - %s [%s]%s\n", p.ProposalNumber, truncate(p.ClientName, 40), truncate(p.EventTitle, 40), p.Status, expired)
			fmt.Printf("    Total: %s  Valid until: %s\n", views.FormatMoney(p.Total), views.FormatDate(p.ValidUntil))
		}
		if total == 0 {
			fmt.Println("No proposals found.")
		} else {
			fmt.Printf("\nShowing %d of %d proposals\n", len(list), total)
		}
		return nil
	},
}

var showProposalCmd = &cobra.Command{
	Use:   "show <number|id|token>",
	Short: "Show a proposal and whether it can still be answered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, cfg, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		svc := proposalService(database, cfg)
		p, err := svc.Lookup(ctx, args[0])
		if err != nil {
			return err
		}

		now := time.Now()
		fmt.Printf("=== Proposal %s ===\n", p.ProposalNumber)
		fmt.Printf("ID:          %s\n", p.ID)
		fmt.Printf("Client:      %s", p.ClientName)
		if p.ClientCompany != "" {
			fmt.Printf(" (%s)", p.ClientCompany)
		}
		fmt.Println()
		if p.EventTitle != "" {
			fmt.Printf("Event:       %s\n", p.EventTitle)
		}
		if p.EventDate != nil {
			fmt.Printf("Event date:  %s\n", views.FormatDate(*p.EventDate))
		}
		fmt.Printf("Status:      %s\n", p.Status.Label())
		fmt.Printf("Total:       %s\n", views.FormatMoney(p.Total))
		fmt.Printf("Valid until: %s\n", views.FormatDate(p.ValidUntil))
		fmt.Printf("Link:        %s\n", svc.Link(p))
		fmt.Printf("Token:       %s\n", token.Redact(p.AccessToken))
		fmt.Println()

		fmt.Println("Speakers:")
		for _, s := range p.Speakers {
			fmt.Printf("  %s  %s\n", s.Name, views.FormatMoney(s.Fee))
		}
		fmt.Println()

		for _, to := range []workflow.ProposalStatus{workflow.ProposalAccepted, workflow.ProposalRejected} {
			verdict := "allowed"
			if err := workflow.CheckProposalResponse(p.Status, to, p.ValidUntil, now); err != nil {
				verdict = err.Error()
			}
			fmt.Printf("%-9s %s\n", to.Label()+":", verdict)
		}
		if p.AcceptedBy != nil {
			fmt.Printf("\nAccepted by %s on %s\n", *p.AcceptedBy, views.FormatDatePtr(p.AcceptedAt))
		}
		if p.RejectedBy != nil {
			fmt.Printf("\nDeclined by %s on %s\n", *p.RejectedBy, views.FormatDatePtr(p.RejectedAt))
		}
		return nil
	},
}

// exportProposal is the flat row written by the export command.
type exportProposal struct {
	Number     string  `json:"proposal_number"`
	Client     string  `json:"client_name"`
	Company    string  `json:"client_company,omitempty"`
	Event      string  `json:"event_title,omitempty"`
	Status     string  `json:"status"`
	Total      float64 `json:"total"`
	ValidUntil string  `json:"valid_until"`
	AcceptedBy string  `json:"accepted_by,omitempty"`
}

var exportProposalsCmd = &cobra.Command{
	Use:   "export",
	Short: "Export proposals",
	Long:  `Export proposals to JSON or CSV format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, cfg, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		f, err := proposalFilter()
		if err != nil {
			return err
		}
		list, _, err := proposalService(database, cfg).List(ctx, f)
		if err != nil {
			return err
		}

		rows := make([]exportProposal, 0, len(list))
		for _, p := range list {
			row := exportProposal{
				Number:     p.ProposalNumber,
				Client:     p.ClientName,
				Company:    p.ClientCompany,
				Event:      p.EventTitle,
				Status:     string(p.Status),
				Total:      p.Total,
				ValidUntil: p.ValidUntil.Format("2006-01-02"),
			}
			if p.AcceptedBy != nil {
				row.AcceptedBy = *p.AcceptedBy
			}
			rows = append(rows, row)
		}

		switch exportFormat {
		case "json":
			return exportJSON(rows)
		case "csv":
			return exportCSV(rows)
		default:
			return fmt.Errorf("unknown format: %s (use json or csv)", exportFormat)
		}
	},
}

func exportJSON(rows []exportProposal) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func exportCSV(rows []exportProposal) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"proposal_number", "client_name", "client_company", "event_title", "status", "total", "valid_until", "accepted_by"}); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			r.Number, r.Client, r.Company, r.Event, r.Status,
			strconv.FormatFloat(r.Total, 'f', 2, 64), r.ValidUntil, r.AcceptedBy,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return w.Error()
}

func init() {
	for _, c := range []*cobra.Command{listProposalsCmd, exportProposalsCmd} {
		c.Flags().StringVar(&proposalStatus, "status", "", "Filter by status")
		c.Flags().IntVar(&proposalLimit, "limit", 50, "Maximum number of proposals")
	}
	exportProposalsCmd.Flags().StringVar(&exportFormat, "format", "json", "Output format (json, csv)")
	proposalsCmd.AddCommand(listProposalsCmd, showProposalCmd, exportProposalsCmd)
}

// Firm offer commands

var offersCmd = &cobra.Command{
	Use:   "offers",
	Short: "Inspect and create firm offers",
}

var (
	offerStatus  string
	speakerEmail string
)

func offerService(database *db.DB, cfg *config.Config) *firmoffers.Service {
	return firmoffers.NewService(firmoffers.NewPGStore(database), nil, cfg.BaseURL)
}

var listOffersCmd = &cobra.Command{
	Use:   "list",
	Short: "List firm offers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, cfg, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		f := firmoffers.ListFilter{Limit: 50}
		if offerStatus != "" {
			st, err := workflow.ParseOfferStatus(offerStatus)
			if err != nil {
				return err
			}
			f.Statuses = []workflow.OfferStatus{st}
		}
		list, total, err := offerService(database, cfg).List(ctx, f)
		if err != nil {
			return err
		}
		for _, o := range list {
			fmt.Printf("#%d: %s - %s [%s]\n", o.ID, truncate(o.SpeakerProgram.SpeakerName, 30), truncate(o.EventOverview.EventName, 40), o.Status)
			if o.Parent != nil {
				fmt.Printf("    From: %s (%s)\n", o.Parent.Reference, o.Parent.ClientName)
			}
			fmt.Printf("    Fee: %s  Confirmation: %s\n", views.FormatMoney(o.FinancialDetails.SpeakerFee), o.Confirmation.Status)
		}
		if total == 0 {
			fmt.Println("No firm offers found.")
		}
		return nil
	},
}

var offerFromDealCmd = &cobra.Command{
	Use:   "from-deal <deal-id>",
	Short: "Create a draft firm offer for a deal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dealID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid deal id %q", args[0])
		}
		ctx := context.Background()
		database, cfg, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		svc := offerService(database, cfg)
		o, err := svc.CreateForDeal(ctx, dealID, speakerEmail)
		if err != nil {
			return err
		}
		fmt.Printf("Created firm offer #%d (%s)\n", o.ID, o.Status)
		fmt.Printf("Speaker review link: %s\n", svc.Link(o))
		return nil
	},
}

func init() {
	listOffersCmd.Flags().StringVar(&offerStatus, "status", "", "Filter by status")
	offerFromDealCmd.Flags().StringVar(&speakerEmail, "speaker-email", "", "Speaker email for the review link")
	offersCmd.AddCommand(listOffersCmd, offerFromDealCmd)
}

// Deal commands

var dealsCmd = &cobra.Command{
	Use:   "deals",
	Short: "Manage deals",
}

var newDeal struct {
	client, email, company, event, date, location, speaker string
	value                                                  float64
}

var createDealCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a deal",
	RunE: func(cmd *cobra.Command, args []string) error {
		d := &models.Deal{
			ClientName:    newDeal.client,
			ClientEmail:   newDeal.email,
			Company:       newDeal.company,
			EventTitle:    newDeal.event,
			EventLocation: newDeal.location,
			SpeakerName:   newDeal.speaker,
			DealValue:     newDeal.value,
		}
		if newDeal.date != "" {
			t, err := time.Parse("2006-01-02", newDeal.date)
			if err != nil {
				return fmt.Errorf("invalid event date %q (use YYYY-MM-DD)", newDeal.date)
			}
			d.EventDate = &t
		}

		ctx := context.Background()
		database, cfg, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		if err := offerService(database, cfg).CreateDeal(ctx, d); err != nil {
			return err
		}
		fmt.Printf("Created deal #%d\n", d.ID)
		return nil
	},
}

func init() {
	f := createDealCmd.Flags()
	f.StringVar(&newDeal.client, "client", "", "Client name")
	f.StringVar(&newDeal.email, "email", "", "Client email")
	f.StringVar(&newDeal.company, "company", "", "Company")
	f.StringVar(&newDeal.event, "event", "", "Event title")
	f.StringVar(&newDeal.date, "date", "", "Event date (YYYY-MM-DD)")
	f.StringVar(&newDeal.location, "location", "", "Event location")
	f.StringVar(&newDeal.speaker, "speaker", "", "Speaker name")
	f.Float64Var(&newDeal.value, "value", 0, "Deal value in USD")
	createDealCmd.MarkFlagRequired("client")
	dealsCmd.AddCommand(createDealCmd)
}

// Speaker commands

var speakersCmd = &cobra.Command{
	Use:   "speakers",
	Short: "Manage the speaker directory",
}

var speakerInput speakers.Input

var listSpeakersCmd = &cobra.Command{
	Use:   "list",
	Short: "List speakers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, _, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		list, err := speakers.NewService(speakers.NewPGStore(database)).List(ctx, false)
		if err != nil {
			return err
		}
		for _, sp := range list {
			flags := ""
			if sp.Featured {
				flags += " [featured]"
			}
			if !sp.Active {
				flags += " [inactive]"
			}
			fmt.Printf("#%d: %s (%s)%s\n", sp.ID, sp.Name, sp.Slug, flags)
			if len(sp.Topics) > 0 {
				fmt.Printf("    Topics: %s\n", strings.Join(sp.Topics, ", "))
			}
		}
		return nil
	},
}

var addSpeakerCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a speaker",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		database, _, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer database.Close()

		sp, err := speakers.NewService(speakers.NewPGStore(database)).Create(ctx, speakerInput)
		if err != nil {
			return err
		}
		fmt.Printf("Created speaker #%d (/speakers/%s)\n", sp.ID, sp.Slug)
		return nil
	},
}

func init() {
	f := addSpeakerCmd.Flags()
	f.StringVar(&speakerInput.Name, "name", "", "Speaker name")
	f.StringVar(&speakerInput.Slug, "slug", "", "URL slug (derived from the name when empty)")
	f.StringVar(&speakerInput.Title, "title", "", "Headline title")
	f.StringVar(&speakerInput.Bio, "bio", "", "Biography")
	f.StringVar(&speakerInput.Topics, "topics", "", "Comma separated topics")
	f.StringVar(&speakerInput.Industries, "industries", "", "Comma separated industries")
	f.StringVar(&speakerInput.FeeRange, "fee-range", "", "Fee range shown on the profile")
	f.BoolVar(&speakerInput.Featured, "featured", false, "Feature on the directory")
	addSpeakerCmd.MarkFlagRequired("name")
	speakersCmd.AddCommand(listSpeakersCmd, addSpeakerCmd)
}

// Media commands

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Manage uploaded media",
}

var removeMediaCmd = &cobra.Command{
	Use:   "rm <key>",
	Short: "Delete an object from the media bucket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		client, err := r2.NewClient(cfg.R2AccountID, cfg.R2AccessKeyID, cfg.R2SecretAccessKey, cfg.R2Bucket, cfg.R2PublicBaseURL)
		if err != nil {
			return err
		}

		ctx := context.Background()
		ok, err := client.Exists(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s not found in bucket %s", args[0], client.Bucket())
		}
		if err := client.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s from %s\n", args[0], client.Bucket())
		return nil
	},
}

func init() {
	mediaCmd.AddCommand(removeMediaCmd)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
