package repo

import "github.com/Chative-core-poc-v1/orderbot/internal/bot/model"

// DemoTenantID is the tenant seeded by SeedDemo.
const DemoTenantID = "demo"

func price(v float64) *float64 { return &v }

// SeedDemo loads a small restaurant so STORE_DRIVER=memory is usable end to
// end. pageID binds the tenant to the Messenger page that will call in.
func SeedDemo(m *MemoryStore, pageID, pageToken string) {
	m.AddTenant(model.Tenant{
		ID:        DemoTenantID,
		Name:      "Demo Kitchen",
		PageID:    pageID,
		PageToken: pageToken,
		Active:    true,
	})

	for i, c := range []model.Category{
		{ID: "burgers", Name: "Burgers", Description: "Grilled to order"},
		{ID: "pizza", Name: "Pizza", Description: "Stone baked"},
		{ID: "drinks", Name: "Drinks", Description: "Cold and hot"},
	} {
		c.TenantID = DemoTenantID
		c.Position = i
		m.AddCategory(c)
	}

	items := []model.Item{
		{
			ID: "classic-burger", CategoryID: "burgers", Name: "Classic Burger",
			Description: "Beef patty, lettuce, tomato, house sauce", Price: 8.50,
			Variations: []model.Variation{
				{ID: "classic-single", Name: "Single", PriceModifier: 0},
				{ID: "classic-double", Name: "Double", PriceModifier: 3},
			},
			Addons: []model.Addon{
				{ID: "cheese", Name: "Cheese", Price: 1},
				{ID: "bacon", Name: "Bacon", Price: 1.5},
				{ID: "egg", Name: "Fried egg", Price: 1.25},
			},
		},
		{
			ID: "veggie-burger", CategoryID: "burgers", Name: "Veggie Burger",
			Description: "Chickpea patty, avocado", Price: 9, DiscountPrice: price(7.5),
			Addons: []model.Addon{{ID: "veggie-cheese", Name: "Cheese", Price: 1}},
		},
		{
			ID: "margherita", CategoryID: "pizza", Name: "Margherita",
			Description: "Tomato, mozzarella, basil", Price: 11,
			Variations: []model.Variation{
				{ID: "margherita-10", Name: "10 inch", PriceModifier: 0},
				{ID: "margherita-14", Name: "14 inch", PriceModifier: 4},
			},
		},
		{ID: "cola", CategoryID: "drinks", Name: "Cola", Price: 2},
		{ID: "lemonade", CategoryID: "drinks", Name: "Lemonade", Price: 2.5},
		{ID: "soup-of-day", CategoryID: "drinks", Name: "Soup of the day", Price: 5},
	}
	for _, it := range items {
		it.TenantID = DemoTenantID
		it.Available = it.ID != "soup-of-day"
		m.AddItem(it)
	}

	m.AddOrderType(model.OrderType{ID: "pickup", TenantID: DemoTenantID, Name: "Pickup", Enabled: true, Position: 0},
		model.FormField{Key: "name", Label: "Name", Type: model.FieldText, Required: true, Position: 0},
		model.FormField{Key: "phone", Label: "Phone", Type: model.FieldPhone, Required: true, Position: 1},
	)
	m.AddOrderType(model.OrderType{ID: "delivery", TenantID: DemoTenantID, Name: "Delivery", Enabled: true, RequiresDelivery: true, Position: 1},
		model.FormField{Key: "name", Label: "Name", Type: model.FieldText, Required: true, Position: 0},
		model.FormField{Key: "phone", Label: "Phone", Type: model.FieldPhone, Required: true, Position: 1},
		model.FormField{Key: "address", Label: "Delivery address", Type: model.FieldText, Required: true, Position: 2},
		model.FormField{Key: "notes", Label: "Notes for the driver", Type: model.FieldText, Position: 3},
	)
	m.AddOrderType(model.OrderType{ID: "dine-in", TenantID: DemoTenantID, Name: "Dine in", Enabled: false, Position: 2})

	m.AddPaymentMethod(model.PaymentMethod{ID: "cash", TenantID: DemoTenantID, Name: "Cash", Details: "Pay when you collect.", Active: true}, "pickup")
	m.AddPaymentMethod(model.PaymentMethod{
		ID: "bank-transfer", TenantID: DemoTenantID, Name: "Bank transfer",
		Details: "Transfer to account 123-456-789 and keep the slip.",
		QRImage: "https://example.com/demo/qr.png", Active: true,
	})
}
