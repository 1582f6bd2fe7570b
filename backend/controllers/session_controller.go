package controllers

import (
	"errors"
	"strconv"
	"time"

	"traintrack/backend/config"
	"traintrack/backend/middleware"
	"traintrack/backend/models"
	"traintrack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SessionController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewSessionController(db *gorm.DB, cfg *config.Config) *SessionController {
	return &SessionController{DB: db, Cfg: cfg}
}

type CreateSessionRequest struct {
	TrainingID    uint        `json:"trainingId" validate:"required"`
	FacilitatorID uint        `json:"facilitatorId" validate:"required"`
	Trainees      interface{} `json:"trainees"`
}

// CreateSession schedules a delivery of a training. The training's current
// question set and version are frozen onto the session here, so publishes
// after this point never change what the session grades against.
func (sc *SessionController) CreateSession(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var input CreateSessionRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if details := utils.ValidateStruct(&input); details != nil {
		return utils.ValidationFailed(c, "Invalid session payload", details)
	}

	var training models.Training
	if err := sc.DB.First(&training, input.TrainingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Training not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	var facilitator models.User
	if err := sc.DB.First(&facilitator, input.FacilitatorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Facilitator not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}
	if facilitator.Role != models.RoleFacilitator {
		return utils.ValidationFailed(c, "facilitatorId must reference a facilitator account")
	}

	session := models.Session{
		TrainingID:         training.ID,
		FacilitatorID:      facilitator.ID,
		QuestionSetID:      training.CurrentQuestionSetID,
		QuestionSetVersion: training.CurrentVersion,
		Status:             models.SessionScheduled,
	}
	if err := sc.DB.Create(&session).Error; err != nil {
		return utils.InternalServerError(c, "Could not create session")
	}

	enrolled, skipped := sc.enroll(session.ID, normalizeIDs(input.Trainees))

	utils.Audit(sc.DB, actor.ID, "session.create", fiber.Map{"sessionId": session.ID, "trainingId": training.ID})
	return utils.Created(c, fiber.Map{
		"session":  session,
		"enrolled": enrolled,
		"skipped":  skipped,
	}, "Session created")
}

// StartSession moves a scheduled session to active, stamps the start time and
// issues a fresh QR token.
func (sc *SessionController) StartSession(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	session, ok := sc.findSession(c)
	if !ok {
		return nil
	}

	if session.Status != models.SessionScheduled {
		return utils.Conflict(c, "Cannot start session that is already "+session.Status)
	}

	now := time.Now().UTC()
	token := uuid.NewString()
	updates := map[string]interface{}{
		"status":        models.SessionActive,
		"start_time":    now,
		"qr_code_token": token,
	}
	if err := sc.DB.Model(session).Updates(updates).Error; err != nil {
		return utils.InternalServerError(c, "Could not start session")
	}
	session.Status = models.SessionActive
	session.StartTime = &now
	session.QRCodeToken = &token

	utils.Audit(sc.DB, actor.ID, "session.start", fiber.Map{"sessionId": session.ID})
	return utils.Success(c, fiber.StatusOK, session, "Session started")
}

// EndSession completes an active session. Only the assigned facilitator, hse
// or a superadmin may end it. The QR token is cleared on completion.
func (sc *SessionController) EndSession(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	session, ok := sc.findSession(c)
	if !ok {
		return nil
	}

	if actor.Role == models.RoleFacilitator && session.FacilitatorID != actor.ID {
		return utils.Forbidden(c, "Only the assigned facilitator can end this session")
	}
	if session.Status != models.SessionActive {
		return utils.Conflict(c, "Cannot end session that is "+session.Status)
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":        models.SessionCompleted,
		"end_time":      now,
		"qr_code_token": nil,
	}
	if err := sc.DB.Model(session).Updates(updates).Error; err != nil {
		return utils.InternalServerError(c, "Could not end session")
	}
	session.Status = models.SessionCompleted
	session.EndTime = &now
	session.QRCodeToken = nil

	utils.Audit(sc.DB, actor.ID, "session.end", fiber.Map{"sessionId": session.ID})
	return utils.Success(c, fiber.StatusOK, session, "Session ended")
}

type EnrollRequest struct {
	TraineeIDs interface{} `json:"traineeIds"`
}

// EnrollTrainees is a best-effort batch enroll: ids that do not resolve to an
// active trainee, or are already enrolled, are reported under skipped without
// failing the call.
func (sc *SessionController) EnrollTrainees(c *fiber.Ctx) error {
	session, ok := sc.findSession(c)
	if !ok {
		return nil
	}

	var input EnrollRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	ids := normalizeIDs(input.TraineeIDs)
	if len(ids) == 0 {
		return utils.ValidationFailed(c, "traineeIds is required")
	}

	enrolled, skipped := sc.enroll(session.ID, ids)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"enrolled": enrolled,
		"skipped":  skipped,
	}, "Enrollment processed")
}

// enroll appends trainee ids to a session. The join-table insert uses
// ON CONFLICT DO NOTHING so concurrent enrolls of the same trainee stay
// idempotent at the store level.
func (sc *SessionController) enroll(sessionID uint, ids []uint) (enrolled, skipped []uint) {
	enrolled = make([]uint, 0, len(ids))
	skipped = make([]uint, 0)

	for _, id := range ids {
		var trainee models.User
		if err := sc.DB.First(&trainee, id).Error; err != nil {
			skipped = append(skipped, id)
			continue
		}
		if !trainee.IsTrainee() || trainee.Status != models.StatusActive {
			skipped = append(skipped, id)
			continue
		}

		row := models.SessionTrainee{SessionID: sessionID, TraineeID: id}
		res := sc.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
		if res.Error != nil || res.RowsAffected == 0 {
			skipped = append(skipped, id)
			continue
		}
		enrolled = append(enrolled, id)
	}
	return enrolled, skipped
}

func (sc *SessionController) ListSessions(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	query := sc.DB.Order("created_at DESC")
	// Facilitators see only their own sessions.
	if actor.Role == models.RoleFacilitator {
		query = query.Where("facilitator_id = ?", actor.ID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var sessions []models.Session
	if err := query.Find(&sessions).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, sessions)
}

func (sc *SessionController) GetSession(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	session, ok := sc.findSession(c)
	if !ok {
		return nil
	}
	if actor.Role == models.RoleFacilitator && session.FacilitatorID != actor.ID {
		return utils.Forbidden(c, "You can only view your own sessions")
	}

	if err := sc.DB.Preload("Trainees").First(session, session.ID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	return utils.Success(c, fiber.StatusOK, session)
}

// PublicView is the unauthenticated session view shown after scanning a QR
// code. It exposes only the training title/description, facilitator name and
// status; never questions or answers.
func (sc *SessionController) PublicView(c *fiber.Ctx) error {
	session, ok := sc.findSession(c)
	if !ok {
		return nil
	}
	if session.Status != models.SessionActive {
		return utils.Forbidden(c, "Session is not active")
	}

	var training models.Training
	if err := sc.DB.First(&training, session.TrainingID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}
	var facilitator models.User
	if err := sc.DB.First(&facilitator, session.FacilitatorID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"title":       training.Title,
		"description": training.Description,
		"facilitator": facilitator.Name,
		"status":      session.Status,
	})
}

type PhoneRequest struct {
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

// TraineeLogin exchanges a phone number for a short-lived token scoped to one
// active session. No persistent trainee login exists.
func (sc *SessionController) TraineeLogin(c *fiber.Ctx) error {
	session, ok := sc.findSession(c)
	if !ok {
		return nil
	}

	trainee, ok := sc.gateTrainee(c, session)
	if !ok {
		return nil
	}

	token, err := utils.GenerateSessionToken(trainee, session.ID, sc.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"trainee": fiber.Map{
			"id":   trainee.ID,
			"name": trainee.Name,
		},
		"sessionId": session.ID,
	})
}

// Scan confirms session access for a trainee identified by phone number.
func (sc *SessionController) Scan(c *fiber.Ctx) error {
	session, ok := sc.findSession(c)
	if !ok {
		return nil
	}

	trainee, ok := sc.gateTrainee(c, session)
	if !ok {
		return nil
	}

	utils.Audit(sc.DB, trainee.ID, "session.scan", fiber.Map{"sessionId": session.ID})
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"access":    "granted",
		"sessionId": session.ID,
		"trainee":   trainee.Name,
	})
}

// GetQuestions returns the frozen question set for an enrolled trainee.
// Only question id and text are exposed; correct answers never leave the
// server on this path.
func (sc *SessionController) GetQuestions(c *fiber.Ctx) error {
	session, ok := sc.findSession(c)
	if !ok {
		return nil
	}

	if _, ok := sc.gateTrainee(c, session); !ok {
		return nil
	}

	var questions []models.Question
	if err := sc.DB.Where("question_set_id = ?", session.QuestionSetID).
		Order("id").Find(&questions).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(questions))
	for _, q := range questions {
		result = append(result, fiber.Map{
			"id":           q.ID,
			"questionText": q.QuestionText,
		})
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"sessionId":          session.ID,
		"questionSetVersion": session.QuestionSetVersion,
		"questions":          result,
	})
}

// Attendance summarizes each enrolled trainee's first attempt.
func (sc *SessionController) Attendance(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	session, ok := sc.findSession(c)
	if !ok {
		return nil
	}
	if actor.Role == models.RoleFacilitator && session.FacilitatorID != actor.ID {
		return utils.Forbidden(c, "You can only view attendance for your own sessions")
	}

	if err := sc.DB.Preload("Trainees").First(session, session.ID).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(session.Trainees))
	for _, trainee := range session.Trainees {
		entry := fiber.Map{
			"traineeId": trainee.ID,
			"name":      trainee.Name,
			"attended":  false,
		}
		var first models.Attempt
		err := sc.DB.Where("session_id = ? AND trainee_id = ? AND attempt_number = 1", session.ID, trainee.ID).
			First(&first).Error
		if err == nil {
			entry["attended"] = true
			entry["submittedAt"] = first.SubmittedAt
			entry["score"] = first.Score
			entry["status"] = first.Status
		}
		result = append(result, entry)
	}
	return utils.Success(c, fiber.StatusOK, result)
}

// gateTrainee enforces the phone-based self-service gate: the session must be
// active, the phone must resolve to a trainee and the trainee must be
// enrolled. On failure the response has already been written.
func (sc *SessionController) gateTrainee(c *fiber.Ctx, session *models.Session) (*models.User, bool) {
	if session.Status != models.SessionActive {
		utils.Forbidden(c, "Session is not active")
		return nil, false
	}

	phone := c.Query("phoneNumber")
	if phone == "" {
		var input PhoneRequest
		if err := c.BodyParser(&input); err == nil {
			phone = input.PhoneNumber
		}
	}
	if phone == "" {
		utils.BadRequest(c, "phoneNumber is required")
		return nil, false
	}

	var trainee models.User
	err := sc.DB.Where("phone_number = ? AND role = ?", phone, models.RoleTrainee).
		First(&trainee).Error
	if err != nil {
		utils.Forbidden(c, "Access denied - trainee not recognized")
		return nil, false
	}

	var enrolled int64
	if err := sc.DB.Model(&models.SessionTrainee{}).
		Where("session_id = ? AND trainee_id = ?", session.ID, trainee.ID).
		Count(&enrolled).Error; err != nil {
		utils.InternalServerError(c, "Could not query database")
		return nil, false
	}
	if enrolled == 0 {
		utils.Forbidden(c, "Access denied - not enrolled in this session")
		return nil, false
	}
	return &trainee, true
}

func (sc *SessionController) findSession(c *fiber.Ctx) (*models.Session, bool) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid session ID")
		return nil, false
	}

	var session models.Session
	if err := sc.DB.First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Session not found")
		} else {
			utils.InternalServerError(c, "Could not query database")
		}
		return nil, false
	}
	return &session, true
}

// normalizeIDs accepts a single id or a list of ids, as numbers or numeric
// strings, and drops anything else.
func normalizeIDs(v interface{}) []uint {
	switch val := v.(type) {
	case nil:
		return nil
	case []interface{}:
		ids := make([]uint, 0, len(val))
		for _, item := range val {
			ids = append(ids, normalizeIDs(item)...)
		}
		return ids
	case float64:
		if val > 0 {
			return []uint{uint(val)}
		}
	case string:
		if n, err := strconv.ParseUint(val, 10, 64); err == nil && n > 0 {
			return []uint{uint(n)}
		}
	}
	return nil
}
