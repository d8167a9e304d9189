package services

import (
  "context"
  "errors"
  "fmt"
  "strings"
  "time"

  "github.com/golang-jwt/jwt/v5"
  "github.com/google/uuid"
  "golang.org/x/crypto/bcrypt"
  "gorm.io/gorm"

  "github.com/mirelia/companion-backend/internal/logger"
  "github.com/mirelia/companion-backend/internal/repos"
  "github.com/mirelia/companion-backend/internal/requestdata"
  "github.com/mirelia/companion-backend/internal/types"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type JWTClaims struct {
  jwt.RegisteredClaims
}

type AuthService interface {
  RegisterUser(ctx context.Context, user *types.User) error
  LoginUser(ctx context.Context, email, password string) (string, string, error)
  RefreshUser(ctx context.Context) (string, string, error)
  LogoutUser(ctx context.Context) error
  SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
  GetAccessTTL() time.Duration
}

type authService struct {
  db            *gorm.DB
  log           *logger.Logger
  userRepo      repos.UserRepo
  userTokenRepo repos.UserTokenRepo
  avatarService AvatarService
  jwtSecretKey  string
  accessTTL     time.Duration
  refreshTTL    time.Duration
  signupGrant   int
}

func NewAuthService(
  db *gorm.DB,
  log *logger.Logger,
  userRepo repos.UserRepo,
  userTokenRepo repos.UserTokenRepo,
  avatarService AvatarService,
  jwtSecretKey string,
  accessTTL time.Duration,
  refreshTTL time.Duration,
  signupGrant int,
) AuthService {
  return &authService{
    db:            db,
    log:           log.With("service", "AuthService"),
    userRepo:      userRepo,
    userTokenRepo: userTokenRepo,
    avatarService: avatarService,
    jwtSecretKey:  jwtSecretKey,
    accessTTL:     accessTTL,
    refreshTTL:    refreshTTL,
    signupGrant:   signupGrant,
  }
}

func (as *authService) RegisterUser(ctx context.Context, user *types.User) error {
  user.Email = strings.ToLower(strings.TrimSpace(user.Email))
  user.Name = strings.TrimSpace(user.Name)
  if user.Email == "" || !strings.Contains(user.Email, "@") {
    return fmt.Errorf("invalid email")
  }
  if len(user.Password) < 8 {
    return fmt.Errorf("password must be at least 8 characters")
  }

  exists, eErr := as.userRepo.EmailExists(ctx, nil, user.Email)
  if eErr != nil {
    return fmt.Errorf("Failed to check email: %w", eErr)
  }
  if exists {
    return fmt.Errorf("email already registered")
  }

  hashed, hErr := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
  if hErr != nil {
    return fmt.Errorf("Failed to hash password: %w", hErr)
  }
  user.Password = string(hashed)

  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    user.ID = uuid.New()
    user.TokenBalance = as.signupGrant
    if as.avatarService != nil && user.AvatarURL == "" {
      if url, aErr := as.avatarService.SaveAvatar(user.Name); aErr != nil {
        as.log.Warn("Failed to render signup avatar", "error", aErr)
      } else {
        user.AvatarURL = url
      }
    }
    if _, cErr := as.userRepo.Create(ctx, tx, []*types.User{user}); cErr != nil {
      if errors.Is(cErr, gorm.ErrDuplicatedKey) {
        return fmt.Errorf("email already registered")
      }
      return fmt.Errorf("Failed to create user: %w", cErr)
    }
    return nil
  })
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (string, string, error) {
  email = strings.ToLower(strings.TrimSpace(email))
  user, uErr := as.userRepo.GetByEmail(ctx, nil, email)
  if uErr != nil {
    if errors.Is(uErr, gorm.ErrRecordNotFound) {
      return "", "", ErrInvalidCredentials
    }
    return "", "", fmt.Errorf("Failed to load user by email: %w", uErr)
  }
  if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); cmpErr != nil {
    return "", "", ErrInvalidCredentials
  }

  var accessToken, refreshToken string
  err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    tok, genErr := as.generateAccessToken(user)
    if genErr != nil {
      return fmt.Errorf("Failed to generate access token: %w", genErr)
    }
    accessToken = tok
    refreshToken = uuid.New().String()
    userToken := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  accessToken,
      RefreshToken: refreshToken,
      ExpiresAt:    time.Now().Add(as.refreshTTL),
    }
    if _, ctErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&userToken}); ctErr != nil {
      return fmt.Errorf("Failed to create user token: %w", ctErr)
    }
    return nil
  })
  if err != nil {
    return "", "", err
  }
  return accessToken, refreshToken, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.RefreshToken == "" {
    return "", "", fmt.Errorf("No refresh token in request context")
  }

  var accessToken, newRefreshToken string
  err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    existing, ftErr := as.userTokenRepo.GetByRefreshToken(ctx, tx, rd.RefreshToken)
    if ftErr != nil {
      if errors.Is(ftErr, gorm.ErrRecordNotFound) {
        return fmt.Errorf("unknown refresh token")
      }
      return fmt.Errorf("Failed to fetch refresh token: %w", ftErr)
    }
    if existing.ExpiresAt.Before(time.Now()) {
      if dErr := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{existing.ID}); dErr != nil {
        return fmt.Errorf("Failed to delete expired token: %w", dErr)
      }
      return fmt.Errorf("refresh token expired")
    }
    user, uErr := as.userRepo.GetByID(ctx, tx, existing.UserID)
    if uErr != nil {
      return fmt.Errorf("Failed to load user for refresh: %w", uErr)
    }
    tok, genErr := as.generateAccessToken(user)
    if genErr != nil {
      return fmt.Errorf("Failed to generate access token: %w", genErr)
    }
    accessToken = tok
    newRefreshToken = uuid.New().String()
    rotated := types.UserToken{
      ID:           uuid.New(),
      UserID:       user.ID,
      AccessToken:  accessToken,
      RefreshToken: newRefreshToken,
      ExpiresAt:    time.Now().Add(as.refreshTTL),
    }
    if _, cErr := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{&rotated}); cErr != nil {
      return fmt.Errorf("Failed to create rotated token: %w", cErr)
    }
    if dErr := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{existing.ID}); dErr != nil {
      return fmt.Errorf("Failed to remove old refresh token: %w", dErr)
    }
    return nil
  })
  if err != nil {
    return "", "", err
  }
  return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
  rd := requestdata.GetRequestData(ctx)
  if rd == nil || rd.TokenString == "" {
    return fmt.Errorf("No access token in request context")
  }
  return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
    found, ftErr := as.userTokenRepo.GetByAccessToken(ctx, tx, rd.TokenString)
    if ftErr != nil {
      if errors.Is(ftErr, gorm.ErrRecordNotFound) {
        return nil
      }
      return fmt.Errorf("Failed to find user token: %w", ftErr)
    }
    if dErr := as.userTokenRepo.DeleteByIDs(ctx, tx, []uuid.UUID{found.ID}); dErr != nil {
      return fmt.Errorf("Failed to delete user token: %w", dErr)
    }
    return nil
  })
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
  claims := JWTClaims{
    RegisteredClaims: jwt.RegisteredClaims{
      Subject:   user.ID.String(),
      ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
      IssuedAt:  jwt.NewNumericDate(time.Now()),
    },
  }
  token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
  return token.SignedString([]byte(as.jwtSecretKey))
}

// SetContextFromToken validates the JWT and attaches request data to ctx.
// The backing user_token row must still exist, so logout revokes access
// immediately even before the JWT itself expires.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
  if tokenString == "" {
    return ctx, fmt.Errorf("empty token")
  }
  parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
    if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
      return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
    }
    return []byte(as.jwtSecretKey), nil
  })
  if err != nil {
    return ctx, fmt.Errorf("Failed to parse token: %w", err)
  }
  claims, ok := parsedToken.Claims.(*JWTClaims)
  if !ok || !parsedToken.Valid {
    return ctx, fmt.Errorf("Invalid or expired JWT token")
  }
  userID, err := uuid.Parse(claims.Subject)
  if err != nil {
    return ctx, fmt.Errorf("Invalid user id in token: %w", err)
  }
  found, ftErr := as.userTokenRepo.GetByAccessToken(ctx, nil, tokenString)
  if ftErr != nil {
    if errors.Is(ftErr, gorm.ErrRecordNotFound) {
      return ctx, fmt.Errorf("token revoked")
    }
    return ctx, fmt.Errorf("Failed to fetch user token: %w", ftErr)
  }
  rd := &requestdata.RequestData{
    TokenString:  tokenString,
    RefreshToken: found.RefreshToken,
    UserID:       userID,
  }
  return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
  return as.accessTTL
}
