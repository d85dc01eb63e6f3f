package model

type Category struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenant_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Position    int    `json:"position"`
}

type Item struct {
	ID            string      `json:"id"`
	TenantID      string      `json:"tenant_id"`
	CategoryID    string      `json:"category_id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	ImageURL      string      `json:"image_url,omitempty"`
	Price         float64     `json:"price"`
	DiscountPrice *float64    `json:"discount_price,omitempty"`
	Available     bool        `json:"available"`
	Variations    []Variation `json:"variations,omitempty"`
	Addons        []Addon     `json:"addons,omitempty"`
}

// EffectivePrice is the discounted price when one is set, else the base price.
func (i Item) EffectivePrice() float64 {
	if i.DiscountPrice != nil {
		return *i.DiscountPrice
	}
	return i.Price
}

func (i Item) Variation(id string) (Variation, bool) {
	for _, v := range i.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

func (i Item) Addon(id string) (Addon, bool) {
	for _, a := range i.Addons {
		if a.ID == id {
			return a, true
		}
	}
	return Addon{}, false
}

// Variation is a single-choice option; PriceModifier may be negative.
type Variation struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	PriceModifier float64 `json:"price_modifier"`
}

// Addon is a multi-choice extra.
type Addon struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

type OrderType struct {
	ID               string `json:"id"`
	TenantID         string `json:"tenant_id"`
	Name             string `json:"name"`
	Enabled          bool   `json:"enabled"`
	RequiresDelivery bool   `json:"requires_delivery"`
	Position         int    `json:"position"`
}

// FieldType drives the light format check applied to form replies.
type FieldType string

const (
	FieldText  FieldType = "text"
	FieldEmail FieldType = "email"
	FieldPhone FieldType = "phone"
)

type FormField struct {
	Key      string    `json:"key"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`
	Position int       `json:"position"`
}

type PaymentMethod struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Details  string `json:"details,omitempty"`
	QRImage  string `json:"qr_image,omitempty"`
	Active   bool   `json:"active"`
}

type Tenant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PageID    string `json:"page_id"`
	PageToken string `json:"-"`
	Currency  string `json:"currency,omitempty"`
	Locale    string `json:"locale,omitempty"`
	Active    bool   `json:"active"`
}
