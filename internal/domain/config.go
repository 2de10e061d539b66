package domain

// Config holds the node identity the services need at runtime. Admin is the
// fixed administrator identity, captured once at initialization.
type Config struct {
	FQDN       string `yaml:"fqdn"`
	PrivateKey string `yaml:"privatekey"`
	Admin      string `yaml:"admin"`
}
