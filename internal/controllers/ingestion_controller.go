package controllers

import (
	"log"
	"net/http"
	"strconv"

	"sentinela/internal/db"
	"sentinela/internal/models"

	"github.com/gin-gonic/gin"
)

// IngestionController exposes what has been ingested so far.
type IngestionController struct {
	Repo *db.PayrollRepository
}

// GetPeriods returns record counts per stored period, newest first
func (ic *IngestionController) GetPeriods(c *gin.Context) {
	limit := getLimitWithDefault(c, 24)

	periods, err := ic.Repo.PeriodCounts(c.Request.Context(), limit)
	if err != nil {
		log.Printf("failed to get periods: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"periods": periods,
	})
}

// GetPeriod returns the record count of a single period
func (ic *IngestionController) GetPeriod(c *gin.Context) {
	year, errYear := strconv.Atoi(c.Param("year"))
	month, errMonth := strconv.Atoi(c.Param("month"))
	period := models.Period{Year: year, Month: month}
	if errYear != nil || errMonth != nil || !period.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid period"})
		return
	}

	count, err := ic.Repo.PeriodCount(c.Request.Context(), period)
	if err != nil {
		log.Printf("failed to get period %s: %v", period, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	if count.Records == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Period not ingested"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"period": count,
	})
}

func getLimitWithDefault(c *gin.Context, defaultValue int) int {
	var err error
	limit := defaultValue
	if c.Query("limit") != "" {
		limit, err = strconv.Atoi(c.Query("limit"))
		if err != nil || limit <= 0 {
			log.Printf("failed to parse limit: %q, using default value: %d", c.Query("limit"), defaultValue)
			return defaultValue
		}
	}
	return limit
}
