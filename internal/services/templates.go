package services

import (
	_ "embed"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed certificate_templates.yaml
var defaultCertificateTemplates []byte

type CertificateTemplate struct {
	Key        string `yaml:"-"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Background string `yaml:"background"`
	// BackgroundImage is an optional png/jpeg path drawn scaled under the text.
	BackgroundImage string `yaml:"background_image"`
	Border          string `yaml:"border"`
	Accent          string `yaml:"accent"`
	Text            string `yaml:"text"`
	Heading         string `yaml:"heading"`
	Preamble        string `yaml:"preamble"`
	Body            string `yaml:"body"`
}

type TemplateCatalog struct {
	def       string
	templates map[string]CertificateTemplate
}

type templateFile struct {
	Default   string                         `yaml:"default"`
	Templates map[string]CertificateTemplate `yaml:"templates"`
}

// LoadTemplateCatalog reads path when set, otherwise the embedded layouts.
func LoadTemplateCatalog(path string) (*TemplateCatalog, error) {
	raw := defaultCertificateTemplates
	if p := strings.TrimSpace(path); p != "" {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read certificate templates: %w", err)
		}
		raw = b
	}
	return ParseTemplateCatalog(raw)
}

func ParseTemplateCatalog(raw []byte) (*TemplateCatalog, error) {
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse certificate templates: %w", err)
	}
	if len(f.Templates) == 0 {
		return nil, fmt.Errorf("no certificate templates defined")
	}
	cat := &TemplateCatalog{def: strings.TrimSpace(f.Default), templates: map[string]CertificateTemplate{}}
	for key, t := range f.Templates {
		t.Key = key
		if t.Width <= 0 || t.Height <= 0 {
			return nil, fmt.Errorf("template %q: width and height must be positive", key)
		}
		for _, c := range []string{t.Background, t.Border, t.Accent, t.Text} {
			if _, err := parseHexColor(c); err != nil {
				return nil, fmt.Errorf("template %q: %w", key, err)
			}
		}
		cat.templates[key] = t
	}
	if _, ok := cat.templates[cat.def]; !ok {
		return nil, fmt.Errorf("default template %q not defined", cat.def)
	}
	return cat, nil
}

// Lookup falls back to the default layout for unknown or empty keys.
func (c *TemplateCatalog) Lookup(key string) CertificateTemplate {
	if t, ok := c.templates[strings.TrimSpace(key)]; ok {
		return t
	}
	return c.templates[c.def]
}

func parseHexColor(s string) (color.NRGBA, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
