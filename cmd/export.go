package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/patiponrmutl/thaimilitary/database"
	"github.com/patiponrmutl/thaimilitary/models"
	"github.com/patiponrmutl/thaimilitary/store"
	"github.com/patiponrmutl/thaimilitary/triage"
)

type exportRow struct {
	ID              string          `json:"id" yaml:"id"`
	ServiceType     string          `json:"serviceType" yaml:"serviceType"`
	FullName        string          `json:"fullName" yaml:"fullName"`
	IDCard          string          `json:"idCard" yaml:"idCard"`
	Phone           string          `json:"phone,omitempty" yaml:"phone,omitempty"`
	Facebook        string          `json:"facebook,omitempty" yaml:"facebook,omitempty"`
	LineID          string          `json:"lineId,omitempty" yaml:"lineId,omitempty"`
	Email           string          `json:"email,omitempty" yaml:"email,omitempty"`
	AppointmentDate *time.Time      `json:"appointmentDate" yaml:"appointmentDate"`
	Status          models.Status   `json:"status" yaml:"status"`
	Timestamp       time.Time       `json:"timestamp" yaml:"timestamp"`
	Category        triage.Category `json:"category" yaml:"category"`
}

type exportReport struct {
	GeneratedAt time.Time     `json:"generatedAt" yaml:"generatedAt"`
	Counts      triage.Counts `json:"counts" yaml:"counts"`
	Requests    []exportRow   `json:"requests" yaml:"requests"`
}

func newExportCmd(load loadFunc) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every request with its current category",
		Example: "  thaimilitary export --format yaml --out requests.yaml\n" +
			"  thaimilitary export --format json",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "yaml" && format != "json" {
				return fmt.Errorf("--format %q: want yaml or json", format)
			}
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			db, err := database.Open(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			reqs, err := store.NewGormStore(db).List(cmd.Context())
			if err != nil {
				return err
			}
			data, err := encodeReport(buildReport(reqs, time.Now()), format)
			if err != nil {
				return err
			}
			return writeOut(cmd.OutOrStdout(), out, data)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "yaml or json")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	return cmd
}

func buildReport(reqs []models.Request, now time.Time) exportReport {
	rep := exportReport{
		GeneratedAt: now,
		Counts:      triage.Count(reqs, now),
		Requests:    make([]exportRow, 0, len(reqs)),
	}
	for _, r := range reqs {
		rep.Requests = append(rep.Requests, exportRow{
			ID:              r.ID,
			ServiceType:     r.ServiceType,
			FullName:        r.FullName,
			IDCard:          r.IDCard,
			Phone:           r.Phone,
			Facebook:        r.Facebook,
			LineID:          r.LineID,
			Email:           r.Email,
			AppointmentDate: r.AppointmentDate,
			Status:          r.Status,
			Timestamp:       r.Timestamp,
			Category:        triage.Classify(r, now),
		})
	}
	return rep
}

func encodeReport(rep exportReport, format string) ([]byte, error) {
	if format == "json" {
		b, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(rep); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ไฟล์ปลายทางถูกแทนที่ทั้งไฟล์ ไม่มีสถานะเขียนครึ่งๆ
func writeOut(stdout io.Writer, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "exported %d bytes to %s\n", len(data), path)
	return nil
}
