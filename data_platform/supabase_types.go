package dataplatform

import (
	"time"

	"github.com/cepro/campuswatch/repository"
	"github.com/google/uuid"
)

// supabaseReading holds the json encoding schema for a reading in supabase.
type supabaseReading struct {
	ID             uuid.UUID `json:"id"`
	RoomID         uuid.UUID `json:"room_id"`
	Time           time.Time `json:"time"`
	Voltage        float64   `json:"voltage"`
	Current        float64   `json:"current"`
	PowerW         float64   `json:"power_w"`
	EnergyKWH      float64   `json:"energy_kwh"`
	Cost           float64   `json:"cost"`
	CO2            float64   `json:"co2"`
	IsAnomaly      bool      `json:"is_anomaly"`
	IsIdle         bool      `json:"is_idle"`
	AnomalyScore   float64   `json:"anomaly_score"`
	Occupancy      int       `json:"occupancy"`
	ScheduledClass bool      `json:"scheduled_class"`
}

// supabaseAlert holds the json encoding schema for an alert in supabase.
type supabaseAlert struct {
	ID           uuid.UUID  `json:"id"`
	RoomID       uuid.UUID  `json:"room_id"`
	Time         time.Time  `json:"time"`
	Type         string     `json:"type"`
	Severity     string     `json:"severity"`
	Message      string     `json:"message"`
	ReadingID    *uuid.UUID `json:"reading_id"`
	Acknowledged bool       `json:"acknowledged"`
}

func convertReadings(rows []repository.StoredReading) []supabaseReading {
	var converted []supabaseReading
	for _, row := range rows {
		converted = append(converted, supabaseReading{
			ID:             row.ID,
			RoomID:         row.RoomID,
			Time:           row.Time,
			Voltage:        row.Voltage,
			Current:        row.Current,
			PowerW:         row.PowerW,
			EnergyKWH:      row.EnergyKWH,
			Cost:           row.Cost,
			CO2:            row.CO2,
			IsAnomaly:      row.IsAnomaly,
			IsIdle:         row.IsIdle,
			AnomalyScore:   row.AnomalyScore,
			Occupancy:      row.Occupancy,
			ScheduledClass: row.ScheduledClass,
		})
	}
	return converted
}

func convertAlerts(rows []repository.StoredAlert) []supabaseAlert {
	var converted []supabaseAlert
	for _, row := range rows {
		converted = append(converted, supabaseAlert{
			ID:           row.ID,
			RoomID:       row.RoomID,
			Time:         row.Time,
			Type:         string(row.Type),
			Severity:     string(row.Severity),
			Message:      row.Message,
			ReadingID:    row.ReadingID,
			Acknowledged: row.Acknowledged,
		})
	}
	return converted
}
