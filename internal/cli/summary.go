package cli

import (
	"os"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/nerdneilsfield/go-book-translator/pkg/pipeline"
)

// renderSummary 渲染任务收尾的逐章状态表
// 章节级失败相互隔离，所以即便任务整体失败，
// 已完成章节的结果也原样保留在表里。
func renderSummary(job *pipeline.Job, titles map[int]string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Chapter", "Status", "Sentences", "Windows", "Attempts", "Error"})

	for _, ch := range job.Chapters() {
		translated := 0
		for _, s := range ch.Sentences {
			if s.State == pipeline.SentenceTranslated {
				translated++
			}
		}
		var errMsg string
		if ch.Err != nil {
			errMsg = ch.Err.Error()
		}
		t.AppendRow(table.Row{
			ch.ChapterID,
			titles[ch.ChapterID],
			statusCell(ch.Status),
			text.AlignRight.Apply(
				color.HiWhiteString("%d/%d", translated, len(ch.Sentences)), 9),
			ch.Windows,
			ch.Attempts,
			errMsg,
		})
	}
	t.Render()
}

// statusCell 给状态着色
func statusCell(s pipeline.ChapterStatus) string {
	switch s {
	case pipeline.ChapterCompleted:
		return color.GreenString(string(s))
	case pipeline.ChapterFailed:
		return color.RedString(string(s))
	case pipeline.ChapterCancelled:
		return color.YellowString(string(s))
	default:
		return string(s)
	}
}
