package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/autoassist/backend/internal/models"
	"github.com/autoassist/backend/internal/warranty"
)

type VehicleBody struct {
	VehicleType  string  `json:"vehicle_type" validate:"required,oneof=petrol diesel electric"`
	VehicleModel string  `json:"vehicle_model" validate:"required"`
	PurchaseDate string  `json:"purchase_date" validate:"required"`
	OdometerKm   float64 `json:"odometer_km" validate:"gte=0"`
}

type vehicleWithWarranty struct {
	models.Vehicle
	Warranty map[string]warranty.Coverage `json:"warranty,omitempty"`
}

func (h *Handler) VehiclesList(c *gin.Context) {
	vehicles, err := h.Store.ListVehicles(c.Request.Context(), actorID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	now := time.Now().UTC()
	out := make([]vehicleWithWarranty, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, vehicleWithWarranty{Vehicle: v, Warranty: warranty.Compute(v, now)})
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": out})
}

func (h *Handler) VehicleAdd(c *gin.Context) {
	var body VehicleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}
	if err := h.Validator.Struct(body); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	vehicle := models.Vehicle{
		ID:           uuid.NewString(),
		VehicleType:  body.VehicleType,
		VehicleModel: body.VehicleModel,
		PurchaseDate: body.PurchaseDate,
		OdometerKm:   body.OdometerKm,
	}
	_, err := h.Store.UpdateVehicles(c.Request.Context(), actorID(c), func(vehicles []models.Vehicle) ([]models.Vehicle, error) {
		return append(vehicles, vehicle), nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle added", "vehicle": vehicle})
}

func (h *Handler) VehicleUpdate(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid payload", err.Error())
		return
	}

	vehicleID := c.Param("vehicleId")
	updated, err := h.Store.UpdateVehicles(c.Request.Context(), actorID(c), func(vehicles []models.Vehicle) ([]models.Vehicle, error) {
		found := false
		for i := range vehicles {
			if vehicles[i].ID != vehicleID {
				continue
			}
			found = true
			if v, ok := patch["vehicle_type"].(string); ok {
				vehicles[i].VehicleType = v
			}
			if v, ok := patch["vehicle_model"].(string); ok {
				vehicles[i].VehicleModel = v
			}
			if v, ok := patch["purchase_date"].(string); ok {
				vehicles[i].PurchaseDate = v
			}
			if v, ok := patch["odometer_km"].(float64); ok {
				vehicles[i].OdometerKm = v
			}
		}
		if !found {
			return nil, pgx.ErrNoRows
		}
		return vehicles, nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle updated", "vehicles": updated})
}

func (h *Handler) VehicleDelete(c *gin.Context) {
	vehicleID := c.Param("vehicleId")
	updated, err := h.Store.UpdateVehicles(c.Request.Context(), actorID(c), func(vehicles []models.Vehicle) ([]models.Vehicle, error) {
		kept := vehicles[:0]
		for _, v := range vehicles {
			if v.ID != vehicleID {
				kept = append(kept, v)
			}
		}
		return kept, nil
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted", "vehicles": updated})
}
