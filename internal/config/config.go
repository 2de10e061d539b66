package config

import (
	"os"

	"github.com/go-yaml/yaml"

	"github.com/opencadastre/cadastre"
)

type Config struct {
	NodeInfo NodeInfo `yaml:"nodeInfo"`
	Server   Server   `yaml:"server"`
}

type NodeInfo struct {
	FQDN       string `yaml:"fqdn"`
	PrivateKey string `yaml:"privatekey"`

	// Admin is the fixed administrator identity. When empty it is derived
	// from the deployer key at load time and never changes afterwards.
	Admin string `yaml:"admin"`
}

type Server struct {
	Listen        string `yaml:"listen"`
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.NodeInfo.Admin == "" {
		admin, err := cadastre.PrivKeyToAddr(config.NodeInfo.PrivateKey)
		if err != nil {
			panic(err)
		}
		config.NodeInfo.Admin = admin
	}

	return config, nil
}
