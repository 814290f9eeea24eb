// Command gentemplate generates the Excel import template for job URL batches.
// Usage: go run cmd/gentemplate/main.go
package main

import (
	"log"
	"os"

	"github.com/xuri/excelize/v2"
)

func main() {
	f := excelize.NewFile()

	// Rename Sheet1 to Jobs
	if err := f.SetSheetName("Sheet1", "Jobs"); err != nil {
		log.Fatal(err)
	}

	// Add headers
	headers := []string{"url", "title"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.SetCellValue("Jobs", cell, h); err != nil {
			log.Fatal(err)
		}
	}

	// Add example rows
	rows := [][]string{
		{"https://example.com/careers/backend-engineer", "Backend Engineer"},
		{"https://example.com/careers/data-analyst", ""},
	}
	for r, row := range rows {
		for i, v := range row {
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				log.Fatal(err)
			}
			if err := f.SetCellValue("Jobs", cell, v); err != nil {
				log.Fatal(err)
			}
		}
	}

	// Create Instructions sheet
	if _, err := f.NewSheet("Instructions"); err != nil {
		log.Fatal(err)
	}
	instructions := []string{
		"Column Descriptions:",
		"",
		"url - Required. Job posting URL (must start with http:// or https://)",
		"title - Optional. Job title; left blank, the scraper fills it in from the page",
		"",
		"Each row becomes one import job in a single import queue.",
	}
	for i, line := range instructions {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			log.Fatal(err)
		}
		if err := f.SetCellValue("Instructions", cell, line); err != nil {
			log.Fatal(err)
		}
	}

	// Ensure examples directory exists
	if err := os.MkdirAll("examples", 0755); err != nil {
		log.Fatal(err)
	}

	// Save the file
	if err := f.SaveAs("examples/job-import-template.xlsx"); err != nil {
		log.Fatal(err)
	}
	log.Println("Created examples/job-import-template.xlsx")
}
