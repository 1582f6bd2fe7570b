package controllers

import (
	"time"

	"traintrack/backend/config"
	"traintrack/backend/models"
	"traintrack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/montanaflynn/stats"
	"gorm.io/gorm"
)

type ReportController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewReportController(db *gorm.DB, cfg *config.Config) *ReportController {
	return &ReportController{DB: db, Cfg: cfg}
}

// Summary aggregates attempts over a time range: totals, pass rate, score
// statistics and a per-training breakdown. New-user counts are real counts of
// accounts created in the range, not a placeholder.
func (rc *ReportController) Summary(c *fiber.Ctx) error {
	from, to, ok := parseRange(c)
	if !ok {
		return utils.BadRequest(c, "Invalid from/to date, expected RFC3339 or YYYY-MM-DD")
	}

	var attempts []models.Attempt
	if err := rc.DB.Where("submitted_at >= ? AND submitted_at <= ?", from, to).
		Find(&attempts).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	passed := 0
	scores := make([]float64, 0, len(attempts))
	attemptsBySession := make(map[uint][]models.Attempt)
	for _, a := range attempts {
		if a.Status == models.AttemptPassed {
			passed++
		}
		scores = append(scores, float64(a.Score))
		attemptsBySession[a.SessionID] = append(attemptsBySession[a.SessionID], a)
	}

	var passRate float64
	if len(attempts) > 0 {
		passRate = float64(passed) / float64(len(attempts)) * 100
	}

	var newUsers int64
	if err := rc.DB.Model(&models.User{}).
		Where("created_at >= ? AND created_at <= ?", from, to).
		Count(&newUsers).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	var sessionsHeld int64
	if err := rc.DB.Model(&models.Session{}).
		Where("start_time >= ? AND start_time <= ?", from, to).
		Count(&sessionsHeld).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	breakdown, err := rc.trainingBreakdown(attemptsBySession)
	if err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"range":         fiber.Map{"from": from, "to": to},
		"totalAttempts": len(attempts),
		"passed":        passed,
		"failed":        len(attempts) - passed,
		"passRate":      passRate,
		"scores":        scoreStats(scores),
		"newUsers":      newUsers,
		"sessionsHeld":  sessionsHeld,
		"byTraining":    breakdown,
	})
}

// trainingBreakdown groups session attempts up to their training.
func (rc *ReportController) trainingBreakdown(attemptsBySession map[uint][]models.Attempt) ([]fiber.Map, error) {
	type agg struct {
		title    string
		attempts int
		passed   int
		scores   []float64
	}
	byTraining := make(map[uint]*agg)

	for sessionID, attempts := range attemptsBySession {
		var session models.Session
		if err := rc.DB.First(&session, sessionID).Error; err != nil {
			continue
		}
		entry := byTraining[session.TrainingID]
		if entry == nil {
			var training models.Training
			if err := rc.DB.First(&training, session.TrainingID).Error; err != nil {
				continue
			}
			entry = &agg{title: training.Title}
			byTraining[session.TrainingID] = entry
		}
		for _, a := range attempts {
			entry.attempts++
			if a.Status == models.AttemptPassed {
				entry.passed++
			}
			entry.scores = append(entry.scores, float64(a.Score))
		}
	}

	result := make([]fiber.Map, 0, len(byTraining))
	for trainingID, entry := range byTraining {
		result = append(result, fiber.Map{
			"trainingId": trainingID,
			"title":      entry.title,
			"attempts":   entry.attempts,
			"passed":     entry.passed,
			"failed":     entry.attempts - entry.passed,
			"scores":     scoreStats(entry.scores),
		})
	}
	return result, nil
}

func scoreStats(scores []float64) fiber.Map {
	if len(scores) == 0 {
		return fiber.Map{"mean": 0, "median": 0, "mode": []float64{}}
	}
	mean, _ := stats.Mean(scores)
	median, _ := stats.Median(scores)
	mode, _ := stats.Mode(scores)
	if mode == nil {
		mode = []float64{}
	}
	return fiber.Map{"mean": mean, "median": median, "mode": mode}
}

func parseRange(c *fiber.Ctx) (from, to time.Time, ok bool) {
	to = time.Now().UTC()

	if v := c.Query("from"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return from, to, false
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return from, to, false
		}
		to = t
	}
	return from, to, true
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
