package vcom

// System is an entry of GET /systems.
type System struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Address is the postal address of a system.
type Address struct {
	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    string `json:"country"`
}

// Coordinates locates a system.
type Coordinates struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// SystemDetails is the payload of GET /systems/{key}.
type SystemDetails struct {
	Name           string      `json:"name"`
	Address        Address     `json:"address"`
	Coordinates    Coordinates `json:"coordinates"`
	CommissionDate string      `json:"commissionDate"`
	Timezone       struct {
		Name string `json:"name"`
	} `json:"timezone"`
}

// Panel is a PV module reference.
type Panel struct {
	Vendor string `json:"vendor"`
	Model  string `json:"model"`
	Count  int    `json:"count"`
}

// MPPTInput is one MPPT tracker of an inverter configuration.
type MPPTInput struct {
	StringCount      int   `json:"stringCount"`
	ModulesPerString int   `json:"modulesPerString"`
	Module           Panel `json:"module"`
}

// SystemConfiguration is the string layout of one inverter, in inverter order.
type SystemConfiguration struct {
	MPPTInputs map[string]MPPTInput `json:"mpptInputs"`
}

// TechnicalData is the payload of GET /systems/{key}/technical-data.
type TechnicalData struct {
	NominalPower         *float64              `json:"nominalPower"`
	SiteArea             *float64              `json:"siteArea"`
	Panels               []Panel               `json:"panels"`
	SystemConfigurations []SystemConfiguration `json:"systemConfigurations"`
}

// Inverter is an entry of GET /systems/{key}/inverters.
type Inverter struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Serial string `json:"serial"`
}

// InverterDetails is the payload of GET /systems/{key}/inverters/{id}.
type InverterDetails struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Serial string `json:"serial"`
	Vendor string `json:"vendor"`
	Model  string `json:"model"`
}

// Ticket is an entry of GET /tickets.
type Ticket struct {
	ID            string `json:"id"`
	SystemKey     string `json:"systemKey"`
	Designation   string `json:"designation"`
	Description   string `json:"description"`
	Status        string `json:"status"`
	Priority      string `json:"priority"`
	CreatedAt     string `json:"createdAt"`
	LastChangedAt string `json:"lastChangedAt"`
}

// Ticket statuses.
const (
	TicketOpen       = "open"
	TicketAssigned   = "assigned"
	TicketInProgress = "inProgress"
	TicketClosed     = "closed"
)

// TicketUpdate is the PATCH /tickets/{id} body. Empty fields are left unchanged.
type TicketUpdate struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Summary  string `json:"summary,omitempty"`
}
