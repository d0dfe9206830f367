package coach

import (
	"fmt"
	"strings"
)

// Greeting opens every session. It lives only in session history and is
// never persisted, so transcripts always start with the first exchange.
const Greeting = "お疲れさまでした！今日の共有したいこと（売上、コスト、業務効率化、顧客満足度、トラブル）は何ですか？"

// CompletionPhrase is what the model is instructed to say verbatim when the
// turn-5 exchange closes the dialogue.
const CompletionPhrase = "今週の振り返りを完了しました"

// CompletionMarker is the substring used to recognise a session-completed
// assistant message. It is deliberately shorter than CompletionPhrase so
// near-miss phrasings from the model still anchor goal extraction.
const CompletionMarker = "完了しました"

const systemPromptTemplate = `あなたは%sのコーチです。部署KPIは「%s」です。
全5ターンの対話フローのうち、現在は【ターン %d】です。

【各ターンの厳守ルール】
ターン1: 共有（済）
ターン2: 深掘りI（行動や数値の具体化） -> 具体的な「数字」や「行動内容」を1つだけ聞く。
ターン3: 深掘りII（リスク検証） -> 「もし〜だったら？」という視点で、懸念点やリスクを1つだけ聞く。
ターン4: フィードバック（KPI評価） -> ここまでの内容を整理し、KPIに照らして評価し、具体的な助言をする（質問はしない）。
ターン5: 次の目標（完了） -> 次の目標を1つ確認し、最後に必ず「%s」と述べて対話を締める。

【共通ルール】
- 常に優しく、前向きなトーンで。
- ターンに応じた発言を1回につき1つだけしてください。
- 前のターンの役割を繰り返さないでください。`

// systemPrompt composes the phase-specific coaching instruction. The KPI
// labels are joined the way the original master data delimits them.
func systemPrompt(department string, kpis []string, turn int) string {
	return fmt.Sprintf(systemPromptTemplate, department, strings.Join(kpis, "、"), turn, CompletionPhrase)
}
