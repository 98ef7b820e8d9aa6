package catalog

// Package catalog provides catalog.yaml parsing functionality.

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Store       StoreConfig        `yaml:"store"`
	Products    []ProductConfig    `yaml:"products"`
	GiftOptions []GiftOptionConfig `yaml:"gift_options"`
}

type StoreConfig struct {
	Name     string `yaml:"name"`
	Currency string `yaml:"currency"`
}

type ProductConfig struct {
	ID            string  `yaml:"id"`
	Name          string  `yaml:"name"`
	Price         float64 `yaml:"price"`
	StockQuantity int     `yaml:"stock_quantity"`
	InStock       bool    `yaml:"in_stock"`
}

type GiftOptionConfig struct {
	ID     string  `yaml:"id"`
	Name   string  `yaml:"name"`
	Price  float64 `yaml:"price"`
	Active bool    `yaml:"active"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &catalog, nil
}

func (p *Parser) ParseFile(path string) (*Catalog, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return p.Parse(content)
}
