package domain

// Address is a delivery address owned by the backend. The cart only uses it
// as a quote input and as the checkout address gate.
type Address struct {
	ID         int64  `json:"endereco_id"`
	Street     string `json:"rua"`
	Number     string `json:"numero"`
	District   string `json:"bairro"`
	City       string `json:"cidade"`
	State      string `json:"estado"`
	PostalCode string `json:"cep"`
	Complement string `json:"complemento,omitempty"`
}
