package review

const reviewSystemPrompt = `あなたは公平な人事評価委員です。部署KPI「%s」を基準に、賞与査定と昇進の判断材料を作成してください。`

const reviewUserPrompt = `以下のログを分析し、1.主な成果、2.KPI貢献度、3.次期の課題、4.査定ランク案(S-D)を出力してください。

%s`
