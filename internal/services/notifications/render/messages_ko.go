package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Korean

	message.SetString(lang, "notification.generic.title", "알림")
	message.SetString(lang, "notification.generic.body", "새로운 알림이 도착했습니다.")
	message.SetString(lang, "notification.application_approved.title", "지원 승인")
	message.SetString(lang, "notification.application_approved.body", "%s 캠페인 지원이 승인되었습니다. 미션을 시작해 주세요!")
	message.SetString(lang, "notification.application_rejected.title", "지원 결과 안내")
	message.SetString(lang, "notification.application_rejected.body", "%s 캠페인에 이번에는 선정되지 않았습니다.")
	message.SetString(lang, "notification.mission_submitted.title", "새 미션 제출")
	message.SetString(lang, "notification.mission_submitted.body", "%s 캠페인의 결과물이 검토를 기다리고 있습니다.")
	message.SetString(lang, "notification.mission_revision_requested.title", "수정 요청")
	message.SetString(lang, "notification.mission_revision_requested.body", "%s 캠페인 결과물에 수정이 필요합니다: %s")
	message.SetString(lang, "notification.mission_revision_requested.body_no_reason", "%s 캠페인 결과물에 수정이 필요합니다.")
	message.SetString(lang, "notification.mission_approved.title", "미션 완료")
	message.SetString(lang, "notification.mission_approved.body", "%s 캠페인 결과물이 승인되었습니다. 수고하셨습니다!")
}
