// Package seed загружает исходные наборы, регистрантов и лист ожидания из YAML.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mmeshcher/clubledger/internal/ledger"
	"github.com/mmeshcher/clubledger/internal/model"
	"github.com/mmeshcher/clubledger/internal/money"
	"github.com/mmeshcher/clubledger/internal/validation"
)

//go:embed default.yaml
var defaultSeed []byte

var (
	// ErrUnknownRegistration возвращается, если регистрант ссылается на несуществующий набор.
	ErrUnknownRegistration = errors.New("unknown registration")
	// ErrDuplicateRegistration возвращается при повторе названия набора.
	ErrDuplicateRegistration = errors.New("duplicate registration title")
	// ErrInvalidSeed возвращается для записей, нарушающих инварианты модели.
	ErrInvalidSeed = errors.New("invalid seed record")
)

// Data содержит загруженное состояние.
type Data struct {
	Registrations []*model.Registration
	Registrants   []*model.Registrant
	Waitlist      []*model.WaitlistEntry
}

type file struct {
	Registrations []registrationRecord `yaml:"registrations"`
	Registrants   []registrantRecord   `yaml:"registrants"`
	Waitlist      []waitlistRecord     `yaml:"waitlist"`
}

type registrationRecord struct {
	Title        string   `yaml:"title"`
	ListPrice    string   `yaml:"list_price"`
	StartDate    string   `yaml:"start_date"`
	EndDate      string   `yaml:"end_date"`
	CapacityMax  int      `yaml:"capacity_max"`
	Enabled      bool     `yaml:"enabled"`
	WaitlistOpen bool     `yaml:"waitlist_open"`
	InvitedTeams []string `yaml:"invited_teams"`
}

type discountRecord struct {
	Code        string `yaml:"code"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Value       string `yaml:"value"`
}

type paymentRecord struct {
	Description     string `yaml:"description"`
	Date            string `yaml:"date"`
	Amount          string `yaml:"amount"`
	OriginalAmount  string `yaml:"original_amount"`
	DiscountApplied string `yaml:"discount_applied"`
	Refunded        string `yaml:"refunded"`
	TransactionID   string `yaml:"transaction_id"`
	Status          string `yaml:"status"`
}

type registrantRecord struct {
	AthleteName       string          `yaml:"athlete_name"`
	DateOfBirth       string          `yaml:"date_of_birth"`
	Gender            string          `yaml:"gender"`
	ContactName       string          `yaml:"contact_name"`
	ContactEmail      string          `yaml:"contact_email"`
	Registration      string          `yaml:"registration"`
	Team              string          `yaml:"team"`
	RegisteredAt      string          `yaml:"registered_at"`
	ListPrice         string          `yaml:"list_price"`
	Status            string          `yaml:"status"`
	PaymentPlanStatus string          `yaml:"payment_plan_status"`
	Discount          *discountRecord `yaml:"discount"`
	Payments          []paymentRecord `yaml:"payments"`
}

type waitlistRecord struct {
	AthleteName  string `yaml:"athlete_name"`
	Program      string `yaml:"program"`
	DateAdded    string `yaml:"date_added"`
	ContactName  string `yaml:"contact_name"`
	ContactEmail string `yaml:"contact_email"`
	Status       string `yaml:"status"`
}

// NewID возвращает упорядоченный по времени идентификатор.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Default загружает встроенный набор данных.
func Default() (*Data, error) {
	return Load(bytes.NewReader(defaultSeed))
}

// LoadFile загружает данные из YAML-файла.
func LoadFile(path string) (*Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	return Load(f)
}

// Load разбирает YAML и строит доменные сущности с пересчитанными производными полями.
func Load(r io.Reader) (*Data, error) {
	var f file
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	data := &Data{}
	byTitle := make(map[string]*model.Registration, len(f.Registrations))

	for _, rec := range f.Registrations {
		reg, err := buildRegistration(rec)
		if err != nil {
			return nil, err
		}
		if _, ok := byTitle[reg.Title]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRegistration, reg.Title)
		}
		byTitle[reg.Title] = reg
		data.Registrations = append(data.Registrations, reg)
	}

	for _, rec := range f.Registrants {
		reg, ok := byTitle[rec.Registration]
		if !ok {
			return nil, fmt.Errorf("%w: %q for %s", ErrUnknownRegistration, rec.Registration, rec.AthleteName)
		}
		r, err := buildRegistrant(rec, reg)
		if err != nil {
			return nil, err
		}
		reg.Capacity.Current++
		data.Registrants = append(data.Registrants, r)
	}

	for _, rec := range f.Waitlist {
		if _, ok := byTitle[rec.Program]; !ok {
			return nil, fmt.Errorf("%w: %q for waitlisted %s", ErrUnknownRegistration, rec.Program, rec.AthleteName)
		}
		e, err := buildWaitlistEntry(rec)
		if err != nil {
			return nil, err
		}
		data.Waitlist = append(data.Waitlist, e)
	}

	return data, nil
}

func parseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s %q: %v", ErrInvalidSeed, field, value, err)
	}
	return t, nil
}

func buildRegistration(rec registrationRecord) (*model.Registration, error) {
	if rec.Title == "" {
		return nil, fmt.Errorf("%w: registration without title", ErrInvalidSeed)
	}
	start, err := parseDate("start_date", rec.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := parseDate("end_date", rec.EndDate)
	if err != nil {
		return nil, err
	}

	reg := &model.Registration{
		Title:        rec.Title,
		ListPrice:    money.Parse(rec.ListPrice),
		StartDate:    start,
		EndDate:      end,
		Capacity:     model.Capacity{Max: rec.CapacityMax},
		Enabled:      rec.Enabled,
		WaitlistOpen: rec.WaitlistOpen && rec.Enabled,
		InvitedTeams: make(map[string]struct{}, len(rec.InvitedTeams)),
	}
	for _, team := range rec.InvitedTeams {
		reg.InvitedTeams[team] = struct{}{}
	}
	return reg, nil
}

func buildDiscount(rec *discountRecord, listPrice decimal.Decimal) (*model.Discount, error) {
	if rec == nil {
		return nil, nil
	}
	d := &model.Discount{
		Code:        rec.Code,
		Type:        model.DiscountType(rec.Type),
		Description: rec.Description,
		Value:       money.Parse(rec.Value),
	}
	switch d.Type {
	case model.DiscountPercentage:
		d.Amount = money.Round(listPrice.Mul(d.Value).Div(decimal.NewFromInt(100)))
	case model.DiscountFixed:
		d.Amount = money.Round(d.Value)
	default:
		return nil, fmt.Errorf("%w: discount %s has type %q", ErrInvalidSeed, rec.Code, rec.Type)
	}
	return d, nil
}

func buildPayment(rec paymentRecord) (model.Payment, error) {
	date, err := parseDate("payment date", rec.Date)
	if err != nil {
		return model.Payment{}, err
	}

	p := model.Payment{
		ID:              NewID(),
		Description:     rec.Description,
		Date:            date,
		Amount:          money.Parse(rec.Amount),
		OriginalAmount:  money.Parse(rec.OriginalAmount),
		DiscountApplied: money.Parse(rec.DiscountApplied),
		Refunded:        money.Parse(rec.Refunded),
		TransactionID:   rec.TransactionID,
		Status:          model.PaymentStatus(rec.Status),
	}
	if p.OriginalAmount.IsZero() {
		p.OriginalAmount = p.Amount
	}

	switch p.Status {
	case model.PaymentPaid, model.PaymentScheduled, model.PaymentCanceled:
		if !p.Refunded.IsZero() {
			return model.Payment{}, fmt.Errorf("%w: %s payment %q carries a refund", ErrInvalidSeed, p.Status, p.Description)
		}
	case model.PaymentRefunded:
		if !p.Refunded.Equal(p.Amount) {
			return model.Payment{}, fmt.Errorf("%w: refunded payment %q must refund its full amount", ErrInvalidSeed, p.Description)
		}
	case model.PaymentPartiallyRefunded:
		if !p.Refunded.IsPositive() || !p.Refunded.LessThan(p.Amount) {
			return model.Payment{}, fmt.Errorf("%w: partially refunded payment %q has refund %s", ErrInvalidSeed, p.Description, p.Refunded)
		}
	default:
		return model.Payment{}, fmt.Errorf("%w: payment %q has status %q", ErrInvalidSeed, p.Description, rec.Status)
	}
	return p, nil
}

func buildRegistrant(rec registrantRecord, reg *model.Registration) (*model.Registrant, error) {
	if rec.ContactEmail != "" && !validation.IsValidEmail(rec.ContactEmail) {
		return nil, fmt.Errorf("%w: %s has contact email %q", ErrInvalidSeed, rec.AthleteName, rec.ContactEmail)
	}
	dob, err := parseDate("date_of_birth", rec.DateOfBirth)
	if err != nil {
		return nil, err
	}
	registeredAt, err := parseDate("registered_at", rec.RegisteredAt)
	if err != nil {
		return nil, err
	}

	listPrice := reg.ListPrice
	if rec.ListPrice != "" {
		listPrice = money.Parse(rec.ListPrice)
	}
	discount, err := buildDiscount(rec.Discount, listPrice)
	if err != nil {
		return nil, err
	}

	r := &model.Registrant{
		ID:                NewID(),
		AthleteName:       rec.AthleteName,
		DateOfBirth:       dob,
		Gender:            rec.Gender,
		Contact:           model.Contact{Name: rec.ContactName, Email: rec.ContactEmail},
		RegistrationTitle: reg.Title,
		Team:              rec.Team,
		RegisteredAt:      registeredAt,
		ListPrice:         listPrice,
		Discount:          discount,
		Payments:          make([]model.Payment, 0, len(rec.Payments)),
		PaymentPlanStatus: model.PlanActive,
	}
	for _, pr := range rec.Payments {
		p, err := buildPayment(pr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rec.AthleteName, err)
		}
		r.Payments = append(r.Payments, p)
	}

	ledger.Recalculate(r)
	if rec.PaymentPlanStatus != "" {
		plan := model.PlanStatus(rec.PaymentPlanStatus)
		if plan != model.PlanActive && plan != model.PlanCanceled {
			return nil, fmt.Errorf("%w: %s has payment plan status %q", ErrInvalidSeed, rec.AthleteName, rec.PaymentPlanStatus)
		}
		r.PaymentPlanStatus = plan
	}
	if r.PaymentPlanStatus == model.PlanCanceled && r.Outstanding.IsZero() {
		r.OutstandingReason = model.OutstandingReasonCanceled
	}
	if rec.Status != "" {
		status := model.AccountStatus(rec.Status)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: %s has status %q", ErrInvalidSeed, rec.AthleteName, rec.Status)
		}
		r.Status = status
	} else {
		r.Status = ledger.InitialStatus(r)
	}
	return r, nil
}

func buildWaitlistEntry(rec waitlistRecord) (*model.WaitlistEntry, error) {
	added, err := parseDate("date_added", rec.DateAdded)
	if err != nil {
		return nil, err
	}
	status := model.InviteStatus(rec.Status)
	if status == "" {
		status = model.InviteWaitlist
	}
	return &model.WaitlistEntry{
		ID:            NewID(),
		AthleteName:   rec.AthleteName,
		Program:       rec.Program,
		DateAdded:     added,
		FamilyContact: model.Contact{Name: rec.ContactName, Email: rec.ContactEmail},
		Status:        status,
	}, nil
}
