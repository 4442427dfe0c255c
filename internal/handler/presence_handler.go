package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"venue-presence-api/internal/dto"
	"venue-presence-api/internal/response"
	"venue-presence-api/internal/service"
)

type PresenceHandler struct {
	presenceService service.PresenceService
}

func NewPresenceHandler(presenceService service.PresenceService) *PresenceHandler {
	return &PresenceHandler{
		presenceService: presenceService,
	}
}

// SetPresence godoc
// @Summary      Venue 체크인 (생성/갱신)
// @Description  인증된 사용자를 해당 Venue에 체크인합니다. 이미 체크인된 경우 위치와 전달된 의향 플래그만 갱신됩니다
// @Tags         presence
// @Accept       json
// @Produce      json
// @Param        venueId path string true "Venue ID (UUID)"
// @Param        request body dto.SetPresenceRequest true "체크인 요청 (플래그 생략 시 기존 값 유지)"
// @Success      200 {object} response.SuccessResponse{data=dto.PresenceResponse} "체크인 성공"
// @Failure      400 {object} response.ErrorResponse "잘못된 요청"
// @Failure      404 {object} response.ErrorResponse "Venue 또는 User를 찾을 수 없음"
// @Failure      500 {object} response.ErrorResponse "서버 에러"
// @Router       /{venueId}/presence [put]
func (h *PresenceHandler) SetPresence(c *gin.Context) {
	auth, ok := ExtractAuthData(c)
	if !ok {
		return
	}

	venueID, err := uuid.Parse(c.Param("venueId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid venue ID")
		return
	}

	var req dto.SetPresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
		return
	}

	result, err := h.presenceService.SetPresence(c.Request.Context(), auth.UserID, venueID, auth.Token, &req)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}

// ClearPresence godoc
// @Summary      Venue 체크아웃
// @Description  인증된 사용자의 해당 Venue 체크인을 제거합니다. 체크인 기록이 없어도 성공으로 처리됩니다
// @Tags         presence
// @Produce      json
// @Param        venueId path string true "Venue ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.ClearPresenceResponse} "체크아웃 성공"
// @Failure      400 {object} response.ErrorResponse "잘못된 Venue ID"
// @Failure      500 {object} response.ErrorResponse "서버 에러"
// @Router       /{venueId}/presence [delete]
func (h *PresenceHandler) ClearPresence(c *gin.Context) {
	auth, ok := ExtractAuthData(c)
	if !ok {
		return
	}

	venueID, err := uuid.Parse(c.Param("venueId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid venue ID")
		return
	}

	if err := h.presenceService.ClearPresence(c.Request.Context(), auth.UserID, venueID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, dto.ClearPresenceResponse{Message: "Presence cleared"})
}

// GetVenuePresence godoc
// @Summary      Venue 체크인 목록 조회
// @Description  해당 Venue에 체크인한 사용자 목록을 닉네임/프로필 이미지와 함께 조회합니다
// @Tags         presence
// @Produce      json
// @Param        venueId path string true "Venue ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=[]dto.PresenceSummary} "목록 조회 성공"
// @Failure      400 {object} response.ErrorResponse "잘못된 Venue ID"
// @Failure      500 {object} response.ErrorResponse "서버 에러"
// @Router       /{venueId}/presence [get]
func (h *PresenceHandler) GetVenuePresence(c *gin.Context) {
	auth, ok := ExtractAuthData(c)
	if !ok {
		return
	}

	venueID, err := uuid.Parse(c.Param("venueId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid venue ID")
		return
	}

	summaries, err := h.presenceService.GetVenuePresence(c.Request.Context(), venueID, auth.Token)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, summaries)
}

// GetVenueCounts godoc
// @Summary      Venue 실시간 카운트 조회
// @Description  해당 Venue의 체크인/사주기/받기 카운트를 조회합니다. 캐시 미스 시 저장소에서 재계산합니다
// @Tags         counts
// @Produce      json
// @Param        venueId path string true "Venue ID (UUID)"
// @Success      200 {object} response.SuccessResponse{data=dto.VenueCountsResponse} "카운트 조회 성공"
// @Failure      400 {object} response.ErrorResponse "잘못된 Venue ID"
// @Failure      500 {object} response.ErrorResponse "서버 에러"
// @Router       /{venueId}/counts [get]
func (h *PresenceHandler) GetVenueCounts(c *gin.Context) {
	venueID, err := uuid.Parse(c.Param("venueId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid venue ID")
		return
	}

	counts, err := h.presenceService.GetVenueCounts(c.Request.Context(), venueID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, counts)
}

// InvalidateVenueCounts godoc
// @Summary      Venue 카운트 캐시 무효화
// @Description  해당 Venue의 카운트 캐시 엔트리를 삭제합니다 (운영용). 다음 조회 시 재계산됩니다
// @Tags         counts
// @Produce      json
// @Param        venueId path string true "Venue ID (UUID)"
// @Success      200 {object} response.SuccessResponse "캐시 무효화 성공"
// @Failure      400 {object} response.ErrorResponse "잘못된 Venue ID"
// @Failure      500 {object} response.ErrorResponse "서버 에러"
// @Router       /{venueId}/counts/cache [delete]
func (h *PresenceHandler) InvalidateVenueCounts(c *gin.Context) {
	venueID, err := uuid.Parse(c.Param("venueId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid venue ID")
		return
	}

	if err := h.presenceService.InvalidateVenueCounts(c.Request.Context(), venueID); err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, nil)
}
