package controllers

import (
	"errors"
	"strconv"
	"time"

	"traintrack/backend/config"
	"traintrack/backend/grading"
	"traintrack/backend/middleware"
	"traintrack/backend/models"
	"traintrack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AttemptController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAttemptController(db *gorm.DB, cfg *config.Config) *AttemptController {
	return &AttemptController{DB: db, Cfg: cfg}
}

type SubmitAttemptRequest struct {
	PhoneNumber string                   `json:"phoneNumber"`
	Answers     []map[string]interface{} `json:"answers"`
}

// SubmitAttempt grades a submission against the session's frozen question
// set and records it as a new immutable attempt. A bearer token carrying a
// trainee identity takes precedence over the phone lookup. Each submission
// gets the next attemptNumber for the (trainee, session) pair; the compound
// unique index keeps numbering consistent under concurrent submissions.
func (ac *AttemptController) SubmitAttempt(c *fiber.Ctx) error {
	sessionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid session ID")
	}

	var session models.Session
	if err := ac.DB.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Session not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if session.Status != models.SessionActive {
		return utils.Conflict(c, "Cannot submit to a session that is "+session.Status)
	}

	var input SubmitAttemptRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	trainee, ok := ac.resolveTrainee(c, &session, input.PhoneNumber)
	if !ok {
		return nil
	}

	answers, err := grading.ParseAnswers(input.Answers)
	if err != nil {
		return utils.ValidationFailed(c, "Answers list cannot be empty")
	}

	var questions []models.Question
	if err := ac.DB.Where("question_set_id = ?", session.QuestionSetID).
		Find(&questions).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	correctByQuestion := make(map[uint]bool, len(questions))
	for _, q := range questions {
		correctByQuestion[q.ID] = q.CorrectAnswer
	}

	var training models.Training
	if err := ac.DB.First(&training, session.TrainingID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := grading.Grade(correctByQuestion, answers, training.PassMark)

	status := models.AttemptFailed
	if result.Passed {
		status = models.AttemptPassed
	}

	attempt := models.Attempt{
		TraineeID:      trainee.ID,
		SessionID:      session.ID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		Status:         status,
		SubmittedAt:    time.Now().UTC(),
	}
	for _, a := range result.Answers {
		attempt.Answers = append(attempt.Answers, models.AttemptAnswer{
			QuestionID:     a.QuestionID,
			SelectedAnswer: a.Selected,
			IsCorrect:      a.Correct,
		})
	}

	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		var maxNumber int
		if err := tx.Model(&models.Attempt{}).
			Where("trainee_id = ? AND session_id = ?", trainee.ID, session.ID).
			Select("COALESCE(MAX(attempt_number), 0)").
			Scan(&maxNumber).Error; err != nil {
			return err
		}
		attempt.AttemptNumber = maxNumber + 1
		return tx.Create(&attempt).Error
	})
	if err != nil {
		return utils.InternalServerError(c, "Could not record attempt")
	}

	utils.Audit(ac.DB, trainee.ID, "attempt.submit", fiber.Map{
		"sessionId":     session.ID,
		"attemptNumber": attempt.AttemptNumber,
		"score":         attempt.Score,
		"status":        attempt.Status,
	})

	return utils.Created(c, fiber.Map{
		"attemptId":      attempt.ID,
		"score":          attempt.Score,
		"totalQuestions": attempt.TotalQuestions,
		"status":         attempt.Status,
		"attemptNumber":  attempt.AttemptNumber,
	}, "Attempt recorded")
}

// SessionResults lists all attempts for a session with a pass/fail summary.
func (ac *AttemptController) SessionResults(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	sessionID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid session ID")
	}

	var session models.Session
	if err := ac.DB.First(&session, sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Session not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if actor.Role == models.RoleFacilitator && session.FacilitatorID != actor.ID {
		return utils.Forbidden(c, "You can only view results for your own sessions")
	}

	var attempts []models.Attempt
	if err := ac.DB.Preload("Answers").
		Where("session_id = ?", session.ID).
		Order("submitted_at").
		Find(&attempts).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	passed, failed := 0, 0
	trainees := make(map[uint]struct{})
	for _, a := range attempts {
		if a.Status == models.AttemptPassed {
			passed++
		} else {
			failed++
		}
		trainees[a.TraineeID] = struct{}{}
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"attempts": attempts,
		"summary": fiber.Map{
			"totalAttempts":  len(attempts),
			"passed":         passed,
			"failed":         failed,
			"uniqueTrainees": len(trainees),
		},
	})
}

// TraineeHistory returns a trainee's attempts with session and training
// context. Trainees may only view their own history.
func (ac *AttemptController) TraineeHistory(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	traineeID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid trainee ID")
	}
	if actor.Role == models.RoleTrainee && actor.ID != uint(traineeID) {
		return utils.Forbidden(c, "You can only view your own history")
	}

	var trainee models.User
	if err := ac.DB.First(&trainee, traineeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Trainee not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var attempts []models.Attempt
	if err := ac.DB.Where("trainee_id = ?", traineeID).
		Order("submitted_at DESC").
		Find(&attempts).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(attempts))
	for _, a := range attempts {
		entry := fiber.Map{
			"attemptId":      a.ID,
			"sessionId":      a.SessionID,
			"score":          a.Score,
			"totalQuestions": a.TotalQuestions,
			"status":         a.Status,
			"attemptNumber":  a.AttemptNumber,
			"submittedAt":    a.SubmittedAt,
		}
		var session models.Session
		if err := ac.DB.First(&session, a.SessionID).Error; err == nil {
			entry["questionSetVersion"] = session.QuestionSetVersion
			var training models.Training
			if err := ac.DB.First(&training, session.TrainingID).Error; err == nil {
				entry["training"] = training.Title
			}
		}
		result = append(result, entry)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"trainee": fiber.Map{
			"id":   trainee.ID,
			"name": trainee.Name,
		},
		"attempts": result,
	})
}

// resolveTrainee picks the submitting trainee: an authenticated trainee token
// wins over the phone lookup. A session-scoped token is only honored for the
// session it was issued for. Either way the trainee must be enrolled in the
// session. On failure the response has already been written.
func (ac *AttemptController) resolveTrainee(c *fiber.Ctx, session *models.Session, phone string) (*models.User, bool) {
	if actor, err := utils.ExtractActorFromToken(c, ac.Cfg); err == nil && actor.Role == models.RoleTrainee {
		if actor.SessionID != 0 && actor.SessionID != session.ID {
			utils.Forbidden(c, "Token is not valid for this session")
			return nil, false
		}
		var trainee models.User
		if err := ac.DB.First(&trainee, actor.ID).Error; err == nil && trainee.IsTrainee() {
			if !ac.isEnrolled(session.ID, trainee.ID) {
				utils.Forbidden(c, "Access denied - not enrolled in this session")
				return nil, false
			}
			return &trainee, true
		}
	}

	if phone == "" {
		utils.BadRequest(c, "phoneNumber is required")
		return nil, false
	}

	var trainee models.User
	err := ac.DB.Where("phone_number = ? AND role = ?", phone, models.RoleTrainee).
		First(&trainee).Error
	if err != nil {
		utils.Forbidden(c, "Access denied - trainee not recognized")
		return nil, false
	}
	if !ac.isEnrolled(session.ID, trainee.ID) {
		utils.Forbidden(c, "Access denied - not enrolled in this session")
		return nil, false
	}
	return &trainee, true
}

func (ac *AttemptController) isEnrolled(sessionID, traineeID uint) bool {
	var count int64
	ac.DB.Model(&models.SessionTrainee{}).
		Where("session_id = ? AND trainee_id = ?", sessionID, traineeID).
		Count(&count)
	return count > 0
}
