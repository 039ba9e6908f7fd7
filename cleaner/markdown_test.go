package cleaner

import (
	"strings"
	"testing"
)

func TestPrepareForExport(t *testing.T) {
	in := `<p>keep</p><script>alert(1)</script><div class="qr_code_pc">scan me</div><img data-src="https://mmbiz.qpic.cn/a.png" src="placeholder.gif">`
	out := PrepareForExport(in, DefaultNoiseSelectors...)

	if strings.Contains(out, "alert") || strings.Contains(out, "scan me") {
		t.Errorf("noise not removed: %q", out)
	}
	if !strings.Contains(out, `src="https://mmbiz.qpic.cn/a.png"`) {
		t.Errorf("data-src not promoted: %q", out)
	}
	if strings.Contains(out, "<body>") {
		t.Errorf("output should be a fragment: %q", out)
	}
}

func TestMarkdownRenderer_Render(t *testing.T) {
	r := NewMarkdownRenderer()
	md, err := r.Render(`<h2>小标题</h2><p>一段<strong>重点</strong>文字</p><img data-src="https://mmbiz.qpic.cn/a.png"><script>x()</script>`, "mp.weixin.qq.com")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	for _, want := range []string{"## 小标题", "**重点**", "https://mmbiz.qpic.cn/a.png"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "x()") {
		t.Errorf("script leaked into markdown:\n%s", md)
	}
}
