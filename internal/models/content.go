package models

import "time"

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Property struct {
	ID            int64     `json:"id"`
	Image         string    `json:"image"`
	Alt           string    `json:"alt"`
	Address       string    `json:"address,omitempty"`
	Price         string    `json:"price"`
	Bedrooms      int       `json:"bedrooms,omitempty"`
	Bathrooms     int       `json:"bathrooms,omitempty"`
	Sqft          string    `json:"sqft,omitempty"`
	Link          string    `json:"link,omitempty"`
	Order         int       `json:"order"`
	Featured      bool      `json:"featured"`
	FeaturedOrder int       `json:"featuredOrder"`
	FeaturedImage string    `json:"featuredImage,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Review struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Title     string    `json:"title"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	Order     int       `json:"order"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Service struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	Order       int       `json:"order"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Hero struct {
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
	CTAText         string `json:"ctaText,omitempty"`
	CTALink         string `json:"ctaLink,omitempty"`
	ShowSearch      bool   `json:"showSearch"`
}

type About struct {
	Header      string `json:"header"`
	TextContent string `json:"textContent"`
	Image       string `json:"image,omitempty"`
	ButtonText  string `json:"buttonText"`
	ButtonLink  string `json:"buttonLink,omitempty"`
}

type Contact struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	Description string `json:"description"`
}
