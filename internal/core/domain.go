package core

// DomainRecord is one row of the input domain list.
type DomainRecord struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}
