package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saferide/saferide/internal/api/models"
	"github.com/saferide/saferide/internal/geo"
)

func TestValidate_CreateSession(t *testing.T) {
	valid := models.CreateSessionRequest{
		Source:      models.Location{Lat: 52.37, Lng: 4.89},
		Destination: models.Location{Lat: 52.35, Lng: 4.91},
		EmergencyContacts: []models.EmergencyContact{
			{Name: "Sam", Email: "sam@example.com"},
		},
	}

	tests := []struct {
		name      string
		mutate    func(r *models.CreateSessionRequest)
		wantField string
		wantCode  string
	}{
		{"valid", func(*models.CreateSessionRequest) {}, "", ""},
		{"latitude out of range", func(r *models.CreateSessionRequest) { r.Source.Lat = 91 }, "source.lat", "LATITUDE"},
		{"longitude out of range", func(r *models.CreateSessionRequest) { r.Destination.Lng = -181 }, "destination.lng", "LONGITUDE"},
		{"bad source", func(r *models.CreateSessionRequest) { r.Source.Source = "satellite" }, "source.source", "ONEOF"},
		{"contact without name", func(r *models.CreateSessionRequest) {
			r.EmergencyContacts = []models.EmergencyContact{{Email: "a@b.c"}}
		}, "emergencyContacts[0].name", "REQUIRED"},
		{"bad email", func(r *models.CreateSessionRequest) {
			r.EmergencyContacts = []models.EmergencyContact{{Name: "A", Email: "not-an-email"}}
		}, "emergencyContacts[0].email", "EMAIL"},
		{"too many alternatives", func(r *models.CreateSessionRequest) { r.Alternatives = 9 }, "alternatives", "LTE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			req.EmergencyContacts = append([]models.EmergencyContact(nil), valid.EmergencyContacts...)
			tt.mutate(&req)

			errs := models.Validate(req)
			if tt.wantField == "" {
				assert.Empty(t, errs)
				return
			}
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.wantField, errs[0].Field)
			assert.Equal(t, tt.wantCode, errs[0].Code)
			assert.NotEmpty(t, errs[0].Message)
		})
	}
}

func TestValidate_ForcedThreatScore(t *testing.T) {
	assert.Empty(t, models.Validate(models.ForcedThreatRequest{Score: 0.95}))

	errs := models.Validate(models.ForcedThreatRequest{Score: 1.5})
	require.Len(t, errs, 1)
	assert.Equal(t, "score", errs[0].Field)
}

func TestValidate_CommunityReportType(t *testing.T) {
	req := models.CommunityReportRequest{
		ReporterID:         "rider-1",
		ReporterTrustScore: 0.8,
		Location:           models.Location{Lat: 1, Lng: 1},
		Type:               "haunted",
	}
	errs := models.Validate(req)
	require.Len(t, errs, 1)
	assert.Equal(t, "type", errs[0].Field)
}

func TestLocation_ToGeo(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	loc := models.Location{Lat: 1, Lng: 2}.ToGeo(now)
	assert.Equal(t, now, loc.Timestamp)
	assert.Equal(t, geo.SourceGPS, loc.Source)

	stamped := models.Location{Lat: 1, Lng: 2, Timestamp: 1700000000000, Source: "wifi"}.ToGeo(now)
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), stamped.Timestamp)
	assert.Equal(t, geo.SourceWiFi, stamped.Source)
}
