package appointmentsRepo

import (
	"context"
	"time"

	"revline/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Create inserts a confirmed appointment.
func (r *mongoAppointmentRepo) Create(ctx context.Context, appointment *models.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.NewString()
	}
	appointment.CreatedAt = time.Now()
	_, err := r.coll.InsertOne(ctx, appointment)
	return err
}

// ListByDate returns a shop's appointments on one calendar date.
func (r *mongoAppointmentRepo) ListByDate(ctx context.Context, shopID, date string) ([]models.Appointment, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"shopId": shopID, "date": date})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var appointments []models.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}
