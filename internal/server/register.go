package server

import (
	"errors"
	"net/http"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"bloodalert/internal/store"
	"bloodalert/internal/utils"
	"bloodalert/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/sirupsen/logrus"
)

type registerRequest struct {
	Email           string   `json:"email" form:"email"`
	Password        string   `json:"password" form:"password"`
	Name            string   `json:"name" form:"name"`
	Phone           *string  `json:"phone" form:"phone"`
	Role            string   `json:"role" form:"role"`
	BloodType       string   `json:"bloodType" form:"bloodType"`
	City            *string  `json:"city" form:"city"`
	Latitude        *float64 `json:"latitude" form:"latitude"`
	Longitude       *float64 `json:"longitude" form:"longitude"`
	HospitalName    *string  `json:"hospitalName" form:"hospitalName"`
	HospitalAddress *string  `json:"hospitalAddress" form:"hospitalAddress"`
}

type fieldErrorsResponse struct {
	Error       string            `json:"error"`
	FieldErrors map[string]string `json:"fieldErrors,omitempty"`
}

func (s *Service) handlePostRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if errs := validateRegisterInput(&req); len(errs) > 0 {
		s.logger.WithField("field_errors", errs).Info("validation errors during registration")
		s.writeJSON(w, http.StatusBadRequest, fieldErrorsResponse{Error: "Please fix the highlighted fields.", FieldErrors: errs})
		return
	}

	if _, err := s.users.UserByEmail(ctx, req.Email); err == nil {
		s.writeJSON(w, http.StatusConflict, fieldErrorsResponse{
			Error:       "Try logging in instead.",
			FieldErrors: map[string]string{"email": "An account with this email already exists."},
		})
		return
	} else if !errors.Is(err, types.ErrUserNotFound) {
		s.logger.WithError(err).Error("failed to look up email")
		s.internalServerError(w)
		return
	}

	out, err := s.identity.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId: aws.String(s.config.CognitoClientID),
		Username: aws.String(req.Email),
		Password: aws.String(req.Password),
		UserAttributes: []ctypes.AttributeType{
			{Name: aws.String("email"), Value: aws.String(req.Email)},
			{Name: aws.String("name"), Value: aws.String(req.Name)},
		},
	})
	if err != nil {
		status, msg, errs := s.mapCognitoSignUpError(err)
		s.writeJSON(w, status, fieldErrorsResponse{Error: msg, FieldErrors: errs})
		return
	}

	now := time.Now()
	user := &types.User{
		ID:              aws.ToString(out.UserSub),
		Email:           req.Email,
		Name:            req.Name,
		Phone:           utils.TrimmedPtr(req.Phone),
		Role:            types.Role(req.Role),
		City:            utils.TrimmedPtr(req.City),
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		HospitalName:    utils.TrimmedPtr(req.HospitalName),
		HospitalAddress: utils.TrimmedPtr(req.HospitalAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if user.ID == "" {
		user.ID = utils.NanoID()
	}
	if user.Role == types.RoleDonor {
		bt := types.BloodType(req.BloodType)
		user.BloodType = &bt
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			s.writeJSON(w, http.StatusConflict, fieldErrorsResponse{
				Error:       "Try logging in instead.",
				FieldErrors: map[string]string{"email": "An account with this email already exists."},
			})
			return
		}
		s.logger.WithError(err).Error("failed to create user")
		s.internalServerError(w)
		return
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")

	s.writeJSON(w, http.StatusCreated, user)
}

func (s *Service) handleGetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, _ := ctx.Value(contextKeyUserID).(string)
	user, err := s.users.User(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, user)
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude" form:"latitude"`
	Longitude *float64 `json:"longitude" form:"longitude"`
}

// handlePatchMeLocation refreshes the caller's coordinates. Hospitals use
// theirs as the center of alerts they raise from then on.
func (s *Service) handlePatchMeLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req locationRequest
	if err := decodeRequest(r, &req); err != nil {
		s.writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	errs := map[string]string{}
	if req.Latitude == nil && req.Longitude == nil {
		errs["latitude"] = "Latitude and longitude are required."
	}
	validateLocation(req.Latitude, req.Longitude, errs)
	if len(errs) > 0 {
		s.writeJSON(w, http.StatusBadRequest, fieldErrorsResponse{Error: "Please fix the highlighted fields.", FieldErrors: errs})
		return
	}

	userID, _ := ctx.Value(contextKeyUserID).(string)
	point := types.Point{Lat: *req.Latitude, Lon: *req.Longitude}
	if err := s.users.UpdateLocation(ctx, userID, point); err != nil {
		s.writeError(w, err)
		return
	}

	user, err := s.users.User(ctx, userID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.logger.WithField("user_id", userID).Info("user location updated")

	s.writeJSON(w, http.StatusOK, user)
}

var (
	hasUpperReg  = regexp.MustCompile(`[A-Z]`)
	hasLowerReg  = regexp.MustCompile(`[a-z]`)
	hasDigitReg  = regexp.MustCompile(`[0-9]`)
	hasSymbolReg = regexp.MustCompile(`[^A-Za-z0-9]`)
)

func validateRegisterInput(req *registerRequest) map[string]string {
	errs := map[string]string{}

	if req.Name == "" {
		errs["name"] = "Name is required."
	}

	if req.Email == "" {
		errs["email"] = "Email is required."
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		errs["email"] = "Enter a valid email address."
	}

	password := req.Password
	if len(password) < 12 || !hasUpperReg.MatchString(password) || !hasLowerReg.MatchString(password) ||
		!hasDigitReg.MatchString(password) || !hasSymbolReg.MatchString(password) {
		errs["password"] = "Password must be at least 12 characters and include uppercase, lowercase, number, and symbol."
	}

	switch types.Role(req.Role) {
	case types.RoleDonor:
		if !types.BloodType(req.BloodType).Valid() {
			errs["bloodType"] = "Choose one of A+, A-, B+, B-, AB+, AB-, O+, O-."
		}
		if utils.TrimmedPtr(req.City) == nil {
			errs["city"] = "City is required for donors."
		}
	case types.RoleHospitalStaff:
		if utils.TrimmedPtr(req.HospitalName) == nil {
			errs["hospitalName"] = "Hospital name is required."
		}
	default:
		errs["role"] = "Role must be donor or hospital_staff."
	}

	validateLocation(req.Latitude, req.Longitude, errs)

	return errs
}

// validateLocation checks an optional coordinate pair; both halves must be
// present or absent together.
func validateLocation(lat, lon *float64, errs map[string]string) {
	if (lat == nil) != (lon == nil) {
		errs["latitude"] = "Latitude and longitude must be given together."
	}
	if lat != nil && (*lat < -90 || *lat > 90) {
		errs["latitude"] = "Latitude must be between -90 and 90."
	}
	if lon != nil && (*lon < -180 || *lon > 180) {
		errs["longitude"] = "Longitude must be between -180 and 180."
	}
}

func (s *Service) mapCognitoSignUpError(err error) (int, string, map[string]string) {
	fieldErrs := map[string]string{}

	var invalidPw *ctypes.InvalidPasswordException
	if errors.As(err, &invalidPw) {
		fieldErrs["password"] = "Password must include uppercase, lowercase, number, and symbol (min 12)."
		return http.StatusBadRequest, "Please fix the highlighted fields.", fieldErrs
	}

	var userExists *ctypes.UsernameExistsException
	if errors.As(err, &userExists) {
		fieldErrs["email"] = "An account with this email already exists."
		return http.StatusConflict, "Try logging in instead.", fieldErrs
	}

	var invalidParam *ctypes.InvalidParameterException
	if errors.As(err, &invalidParam) {
		return http.StatusBadRequest, "Some details are invalid. Please review and try again.", fieldErrs
	}

	s.logger.WithError(err).Error("unhandled cognito signup error")

	return http.StatusBadGateway, "Unable to create account right now. Please try again.", fieldErrs
}
