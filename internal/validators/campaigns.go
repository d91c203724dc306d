package validators

import (
	"math"
	"strings"

	"github.com/jellydator/validation"
)

// MinDonation is one wei expressed in ether.
const MinDonation = 1e-18

var errNotInteger = validation.NewError("validation_not_integer", "must be an integer")

func integer(value any) error {
	v, ok := value.(*float64)
	if !ok || v == nil {
		return nil
	}
	if math.Trunc(*v) != *v || math.IsInf(*v, 0) {
		return errNotInteger
	}
	return nil
}

type CampaignID struct {
	CampaignID *float64 `json:"campaignId"`
}

func (c CampaignID) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.CampaignID, validation.NotNil, validation.By(integer), validation.Min(0.0)),
	)
}

type DonationAmount struct {
	DonationAmount *float64 `json:"donationAmount"`
}

func (d DonationAmount) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.DonationAmount, validation.Required, validation.Min(MinDonation)),
	)
}

// CampaignCreate is the registration form for a campaign already deployed on chain.
type CampaignCreate struct {
	PID      *float64 `json:"pId"`
	Title    string   `json:"title"`
	Desc     string   `json:"desc"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Image    string   `json:"image"`
	Target   *float64 `json:"target"`
	Softcap  *float64 `json:"softcap"`
}

func (c CampaignCreate) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.PID, validation.NotNil, validation.By(integer), validation.Min(0.0)),
		validation.Field(&c.Title, validation.Required),
		validation.Field(&c.Desc, validation.Required),
		validation.Field(&c.Category, validation.Required),
		validation.Field(&c.Image, validation.Required),
		validation.Field(&c.Target, validation.Required, validation.By(integer), validation.Min(1.0)),
		validation.Field(&c.Softcap, validation.Required, validation.By(integer), validation.Min(1.0)),
	)
}

type CampaignUpdate struct {
	Title   *string `json:"title"`
	Desc    *string `json:"desc"`
	Message *string `json:"message"`
}

func (c CampaignUpdate) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Title, validation.NilOrNotEmpty),
		validation.Field(&c.Desc, validation.NilOrNotEmpty),
	)
}

// ValidateCampaignID checks an on-chain campaign index before it is sent to the contract.
func ValidateCampaignID(id any) (int64, error) {
	var v CampaignID
	if err := Decode(map[string]any{"campaignId": id}, &v); err != nil {
		return 0, err
	}
	return int64(*v.CampaignID), nil
}

// ValidateDonationAmount checks a user-entered ether amount. The trimmed
// string is returned so the caller can convert it to wei without float loss.
func ValidateDonationAmount(amount string) (string, error) {
	var v DonationAmount
	if err := Decode(map[string]any{"donationAmount": amount}, &v); err != nil {
		return "", err
	}
	return strings.TrimSpace(amount), nil
}
