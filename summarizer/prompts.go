package summarizer

import (
	"fmt"
	"strings"

	"timesheet-automation/model"
)

const systemPromptKO = `당신은 업무일지 작성을 도와주는 AI 어시스턴트입니다.
주어진 Git 커밋 메시지와 Slack 메시지를 분석하여 간결한 업무내용 요약을 작성합니다.

규칙:
- 한국어로 작성
- 간결하고 전문적인 톤
- 업무 내용만 포함 (잡담, 인사 등 제외)
- 주요 작업 내용을 불릿 포인트로 요약
- 최대 3-5줄`

const systemPromptEN = `You are an AI assistant helping to write work logs.
Analyze the given Git commit messages and Slack messages to create concise work summaries.

Rules:
- Write in English
- Use concise, professional tone
- Include only work-related content (exclude casual chat, greetings)
- Summarize key tasks as bullet points
- Maximum 3-5 lines`

// SystemPrompt returns the instruction prompt for the given language.
func SystemPrompt(language string) string {
	if language == "ko" {
		return systemPromptKO
	}
	return systemPromptEN
}

// PlaceholderNotes returns the note text used when a period has no
// activity or summarization fails.
func PlaceholderNotes(language string) string {
	if language == "ko" {
		return "일반 업무"
	}
	return "General work"
}

// BuildUserPrompt renders one period's activity as the model input.
func BuildUserPrompt(period string, commits []model.Commit, messages []model.Message, language string) string {
	ko := language == "ko"

	var periodLabel string
	if ko {
		if period == "am" {
			periodLabel = "오전 (09:00-12:00)"
		} else {
			periodLabel = "오후 (13:00-18:00)"
		}
	} else {
		if period == "am" {
			periodLabel = "Morning (09:00-12:00)"
		} else {
			periodLabel = "Afternoon (13:00-18:00)"
		}
	}

	var sb strings.Builder
	if ko {
		fmt.Fprintf(&sb, "%s 업무내용을 요약해주세요.\n\n", periodLabel)
	} else {
		fmt.Fprintf(&sb, "Summarize the %s work.\n\n", periodLabel)
	}

	if len(commits) > 0 {
		if ko {
			sb.WriteString("## Git 커밋:\n")
		} else {
			sb.WriteString("## Git Commits:\n")
		}
		for _, c := range commits {
			fmt.Fprintf(&sb, "- [%s] %s\n", c.Repo, c.Message)
		}
		sb.WriteString("\n")
	}

	if len(messages) > 0 {
		if ko {
			sb.WriteString("## Slack 메시지:\n")
		} else {
			sb.WriteString("## Slack Messages:\n")
		}
		for _, m := range messages {
			fmt.Fprintf(&sb, "- [#%s] %s\n", m.ChannelName, m.Text)
		}
		sb.WriteString("\n")
	}

	if len(commits) == 0 && len(messages) == 0 {
		if ko {
			sb.WriteString("(이 시간대에 기록된 활동이 없습니다)")
		} else {
			sb.WriteString("(No recorded activity for this period)")
		}
	}

	return sb.String()
}
