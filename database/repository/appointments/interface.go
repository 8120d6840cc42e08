package appointmentsRepo

import (
	"context"

	"revline/database"
	"revline/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// AppointmentRepository stores phone-booked appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	ListByDate(ctx context.Context, shopID, date string) ([]models.Appointment, error)
}

type mongoAppointmentRepo struct {
	coll *mongo.Collection
}

// NewMongoAppointmentRepo returns a new AppointmentRepository instance using MongoDB.
func NewMongoAppointmentRepo() AppointmentRepository {
	return &mongoAppointmentRepo{
		coll: database.DB().Collection("appointments"),
	}
}
