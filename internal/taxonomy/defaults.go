package taxonomy

// Fallback categories used when nothing matches.
const (
	OtherExpenses = "Other Expenses"
	OtherIncome   = "Other Income"
)

// Default returns the built-in hierarchy.
func Default() *Taxonomy {
	return New(defaultExpense, defaultIncome)
}

var defaultExpense = []Entry{
	{
		Name:          "Food & Dining",
		Subcategories: []string{"Groceries", "Restaurants", "Fast Food", "Coffee"},
		Keywords:      []string{"food", "lunch", "dinner", "breakfast", "brunch", "meal", "supermarket", "pizza", "burger", "sushi", "cafe", "mcdonald", "starbucks", "takeout", "snack"},
	},
	{
		Name:          "Bills & Utilities",
		Subcategories: []string{"Electricity", "Water", "Internet", "Phone", "Gas & Heating"},
		Keywords:      []string{"bill", "utility", "electric", "power", "wifi", "broadband", "mobile", "heating"},
	},
	{
		Name:          "Housing",
		Subcategories: []string{"Rent", "Mortgage", "Maintenance", "Furniture"},
		Keywords:      []string{"rent", "landlord", "mortgage", "apartment", "repair", "plumber"},
	},
	{
		Name:          "Transportation",
		Subcategories: []string{"Fuel", "Public Transit", "Parking", "Taxi & Rideshare", "Car Maintenance"},
		Keywords:      []string{"gas", "petrol", "fuel", "uber", "lyft", "taxi", "cab", "bus", "train", "metro", "subway", "parking", "toll", "car"},
	},
	{
		Name:          "Shopping",
		Subcategories: []string{"Clothing", "Electronics", "Home Goods", "Online Shopping"},
		Keywords:      []string{"shop", "amazon", "clothes", "shoes", "shirt", "laptop", "phone case", "mall"},
	},
	{
		Name:          "Entertainment",
		Subcategories: []string{"Movies", "Streaming", "Games", "Events"},
		Keywords:      []string{"movie", "cinema", "netflix", "spotify", "concert", "game", "ticket", "show"},
	},
	{
		Name:          "Health & Fitness",
		Subcategories: []string{"Pharmacy", "Doctor", "Gym", "Insurance"},
		Keywords:      []string{"doctor", "dentist", "pharmacy", "medicine", "gym", "hospital", "clinic", "fitness"},
	},
	{
		Name:          "Travel",
		Subcategories: []string{"Flights", "Hotels", "Vacation"},
		Keywords:      []string{"flight", "hotel", "airbnb", "trip", "vacation", "airline"},
	},
	{
		Name:          "Education",
		Subcategories: []string{"Tuition", "Books", "Courses"},
		Keywords:      []string{"tuition", "school", "course", "book", "textbook", "class"},
	},
	{
		Name:          "Personal Care",
		Subcategories: []string{"Haircut", "Cosmetics"},
		Keywords:      []string{"haircut", "salon", "barber", "spa", "cosmetic"},
	},
	{
		Name:          "Gifts & Donations",
		Subcategories: []string{"Gifts", "Charity"},
		Keywords:      []string{"gift", "present", "donation", "donate", "charity"},
	},
	{
		Name:          "Fees & Charges",
		Subcategories: []string{"Bank Fees", "Taxes", "Subscriptions"},
		Keywords:      []string{"fee", "tax", "subscription", "penalty", "interest"},
	},
	{
		Name: OtherExpenses,
	},
}

var defaultIncome = []Entry{
	{
		Name:     "Salary",
		Keywords: []string{"salary", "paycheck", "payroll", "wage", "payday"},
	},
	{
		Name:     "Freelance",
		Keywords: []string{"freelance", "client", "invoice", "contract", "consulting", "gig"},
	},
	{
		Name:          "Investments",
		Subcategories: []string{"Dividends", "Interest", "Capital Gains"},
		Keywords:      []string{"dividend", "interest", "stock", "crypto", "investment"},
	},
	{
		Name:     "Rental Income",
		Keywords: []string{"tenant", "rental"},
	},
	{
		Name:     "Gifts Received",
		Keywords: []string{"gift", "birthday"},
	},
	{
		Name:     "Refunds",
		Keywords: []string{"refund", "reimburse", "cashback", "return"},
	},
	{
		Name: OtherIncome,
	},
}
