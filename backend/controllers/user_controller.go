package controllers

import (
	"errors"
	"strconv"

	"traintrack/backend/config"
	"traintrack/backend/middleware"
	"traintrack/backend/models"
	"traintrack/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

type CreateUserRequest struct {
	Name        string `json:"name" validate:"required"`
	Role        string `json:"role" validate:"required,oneof=trainee facilitator hr hse superadmin"`
	Email       string `json:"email" validate:"omitempty,email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Department  string `json:"department"`
}

func userProfile(u *models.User) fiber.Map {
	return fiber.Map{
		"id":          u.ID,
		"name":        u.Name,
		"email":       u.Email,
		"phoneNumber": u.PhoneNumber,
		"department":  u.Department,
		"role":        u.Role,
		"status":      u.Status,
		"createdAt":   u.CreatedAt,
	}
}

// CreateUser creates a staff or trainee account. HR may only create
// trainees; field requirements depend on the role: staff need a unique
// email and a password, trainees a unique phone number and a department.
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var input CreateUserRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if details := utils.ValidateStruct(&input); details != nil {
		return utils.ValidationFailed(c, "Invalid user payload", details)
	}

	if actor.Role == models.RoleHR && input.Role != models.RoleTrainee {
		return utils.Forbidden(c, "HR can only create trainee accounts")
	}

	user := models.User{
		Name:   input.Name,
		Role:   input.Role,
		Status: models.StatusActive,
	}

	if input.Role == models.RoleTrainee {
		if input.PhoneNumber == "" || input.Department == "" {
			return utils.ValidationFailed(c, "Trainee accounts require phoneNumber and department")
		}
		if taken, err := uc.phoneTaken(input.PhoneNumber, 0); err != nil {
			return utils.InternalServerError(c, "Could not query database")
		} else if taken {
			return utils.Conflict(c, "A user with this phone number already exists")
		}
		user.PhoneNumber = &input.PhoneNumber
		user.Department = input.Department
	} else {
		if input.Email == "" || input.Password == "" {
			return utils.ValidationFailed(c, "Staff accounts require email and password")
		}
		if taken, err := uc.emailTaken(input.Email, 0); err != nil {
			return utils.InternalServerError(c, "Could not query database")
		} else if taken {
			return utils.Conflict(c, "A user with this email already exists")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.Email = &input.Email
		user.PasswordHash = string(hash)
	}

	if err := uc.DB.Create(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not create user")
	}

	utils.Audit(uc.DB, actor.ID, "user.create", fiber.Map{"userId": user.ID, "role": user.Role})
	return utils.Created(c, userProfile(&user), "User created")
}

func (uc *UserController) ListUsers(c *fiber.Ctx) error {
	query := uc.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var users []models.User
	if err := query.Order("created_at DESC").Find(&users).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	result := make([]fiber.Map, 0, len(users))
	for i := range users {
		result = append(result, userProfile(&users[i]))
	}
	return utils.Success(c, fiber.StatusOK, result)
}

func (uc *UserController) GetUser(c *fiber.Ctx) error {
	user, ok := uc.findUser(c)
	if !ok {
		return nil
	}
	return utils.Success(c, fiber.StatusOK, userProfile(user))
}

type UpdateUserRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Department  string `json:"department"`
	Status      string `json:"status"`
}

// UpdateUser applies a role-scoped partial update. HR may only target
// hse/trainee accounts and assign those roles; HSE only facilitators;
// superadmin is unrestricted. Switching a role clears the identity field
// the new role does not use.
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	user, ok := uc.findUser(c)
	if !ok {
		return nil
	}

	var input UpdateUserRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	switch actor.Role {
	case models.RoleHR:
		if user.Role != models.RoleHSE && user.Role != models.RoleTrainee {
			return utils.Forbidden(c, "HR can only update hse and trainee accounts")
		}
		if input.Role != "" && input.Role != models.RoleHSE && input.Role != models.RoleTrainee {
			return utils.Forbidden(c, "HR can only assign the hse or trainee role")
		}
	case models.RoleHSE:
		if user.Role != models.RoleFacilitator {
			return utils.Forbidden(c, "HSE can only update facilitator accounts")
		}
		if input.Role != "" && input.Role != models.RoleFacilitator {
			return utils.Forbidden(c, "HSE can only assign the facilitator role")
		}
	}

	if input.Role != "" {
		if !models.ValidRole(input.Role) {
			return utils.ValidationFailed(c, "Unknown role: "+input.Role)
		}
		if input.Role != user.Role {
			// Clear the identity field the new role does not use.
			if input.Role == models.RoleTrainee {
				user.Email = nil
				user.PasswordHash = ""
			} else {
				user.PhoneNumber = nil
				user.Department = ""
			}
			user.Role = input.Role
		}
	}

	if input.Name != "" {
		user.Name = input.Name
	}

	if input.Email != "" {
		if user.IsTrainee() {
			return utils.ValidationFailed(c, "Email cannot be set on trainee accounts")
		}
		if taken, err := uc.emailTaken(input.Email, user.ID); err != nil {
			return utils.InternalServerError(c, "Could not query database")
		} else if taken {
			return utils.Conflict(c, "A user with this email already exists")
		}
		user.Email = &input.Email
	}

	if input.PhoneNumber != "" || input.Department != "" {
		if !user.IsTrainee() {
			return utils.ValidationFailed(c, "Phone number and department can only be set on trainee accounts")
		}
		if input.PhoneNumber != "" {
			if taken, err := uc.phoneTaken(input.PhoneNumber, user.ID); err != nil {
				return utils.InternalServerError(c, "Could not query database")
			} else if taken {
				return utils.Conflict(c, "A user with this phone number already exists")
			}
			user.PhoneNumber = &input.PhoneNumber
		}
		if input.Department != "" {
			user.Department = input.Department
		}
	}

	if input.Status != "" {
		if input.Status != models.StatusActive && input.Status != models.StatusInactive {
			return utils.ValidationFailed(c, "Status must be active or inactive")
		}
		user.Status = input.Status
	}

	if input.Password != "" {
		if user.IsTrainee() {
			return utils.ValidationFailed(c, "Trainee accounts have no password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hash)
	}

	if err := uc.saveUser(user); err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}
	return utils.Success(c, fiber.StatusOK, userProfile(user), "User updated")
}

// ToggleStatus flips a trainee between active and inactive.
func (uc *UserController) ToggleStatus(c *fiber.Ctx) error {
	user, ok := uc.findUser(c)
	if !ok {
		return nil
	}
	if !user.IsTrainee() {
		return utils.ValidationFailed(c, "Status toggle is only valid for trainee accounts")
	}

	if user.Status == models.StatusActive {
		user.Status = models.StatusInactive
	} else {
		user.Status = models.StatusActive
	}

	if err := uc.DB.Model(user).Update("status", user.Status).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}
	return utils.Success(c, fiber.StatusOK, userProfile(user), "Status updated")
}

// DeleteUser removes an account within role-based limits: HR deletes only
// trainees, HSE only facilitators, and nobody deletes their own account
// unless superadmin.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	user, ok := uc.findUser(c)
	if !ok {
		return nil
	}

	if user.ID == actor.ID && actor.Role != models.RoleSuperadmin {
		return utils.Forbidden(c, "You cannot delete your own account")
	}

	switch actor.Role {
	case models.RoleHR:
		if !user.IsTrainee() {
			return utils.Forbidden(c, "HR can only delete trainee accounts")
		}
	case models.RoleHSE:
		if user.Role != models.RoleFacilitator {
			return utils.Forbidden(c, "HSE can only delete facilitator accounts")
		}
	}

	// Hard delete: the unique email/phone indexes cover soft-deleted rows,
	// so a soft delete would reserve the identity key forever.
	if err := uc.DB.Unscoped().Delete(user).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete user")
	}

	utils.Audit(uc.DB, actor.ID, "user.delete", fiber.Map{"userId": user.ID, "role": user.Role})
	return utils.Success(c, fiber.StatusOK, nil, "User deleted")
}

func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var user models.User
	if err := uc.DB.First(&user, actor.ID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}
	return utils.Success(c, fiber.StatusOK, userProfile(&user))
}

// UpdateProfile lets a user change their own name and password freely, and
// their identity/contact fields with a uniqueness re-check.
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)

	var user models.User
	if err := uc.DB.First(&user, actor.ID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	var input struct {
		Name        string `json:"name"`
		Password    string `json:"password"`
		Email       string `json:"email"`
		PhoneNumber string `json:"phoneNumber"`
		Department  string `json:"department"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Password != "" {
		if user.IsTrainee() {
			return utils.ValidationFailed(c, "Trainee accounts have no password")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hash)
	}

	if input.Email != "" {
		if user.IsTrainee() {
			return utils.ValidationFailed(c, "Email cannot be set on trainee accounts")
		}
		if taken, err := uc.emailTaken(input.Email, user.ID); err != nil {
			return utils.InternalServerError(c, "Could not query database")
		} else if taken {
			return utils.Conflict(c, "A user with this email already exists")
		}
		user.Email = &input.Email
	}

	if input.PhoneNumber != "" || input.Department != "" {
		if !user.IsTrainee() {
			return utils.ValidationFailed(c, "Phone number and department can only be set on trainee accounts")
		}
		if input.PhoneNumber != "" {
			if taken, err := uc.phoneTaken(input.PhoneNumber, user.ID); err != nil {
				return utils.InternalServerError(c, "Could not query database")
			} else if taken {
				return utils.Conflict(c, "A user with this phone number already exists")
			}
			user.PhoneNumber = &input.PhoneNumber
		}
		if input.Department != "" {
			user.Department = input.Department
		}
	}

	if err := uc.saveUser(&user); err != nil {
		return utils.InternalServerError(c, "Could not update profile")
	}
	return utils.Success(c, fiber.StatusOK, userProfile(&user), "Profile updated")
}

// findUser resolves the :id param. On failure the response has already been
// written and ok is false.
func (uc *UserController) findUser(c *fiber.Ctx) (*models.User, bool) {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid user ID")
		return nil, false
	}

	var user models.User
	if err := uc.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "User not found")
		} else {
			utils.InternalServerError(c, "Could not query database")
		}
		return nil, false
	}
	return &user, true
}

// saveUser persists all fields including cleared pointers, which a plain
// Save with struct defaults would skip.
func (uc *UserController) saveUser(user *models.User) error {
	return uc.DB.Model(user).Select("*").Omit("created_at").Updates(user).Error
}

func (uc *UserController) emailTaken(email string, excludeID uint) (bool, error) {
	var count int64
	err := uc.DB.Model(&models.User{}).
		Where("email = ? AND id <> ?", email, excludeID).
		Count(&count).Error
	return count > 0, err
}

func (uc *UserController) phoneTaken(phone string, excludeID uint) (bool, error) {
	var count int64
	err := uc.DB.Model(&models.User{}).
		Where("phone_number = ? AND id <> ?", phone, excludeID).
		Count(&count).Error
	return count > 0, err
}
