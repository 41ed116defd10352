package render

import "html/template"

const themeLightCSS = `  :root {
    --body-bg: #f0f0f0;
    --body-color: #333;
    --user-bg: #dcf8c6;
    --user-border: #a5d6a7;
    --user-label: #2e7d32;
    --assistant-bg: #e3f2fd;
    --assistant-border: #90caf9;
    --assistant-label: #1565c0;
    --tool-bg: #fff3e0;
    --tool-border: #ffcc80;
    --tool-name-color: #e65100;
    --result-bg: #f5f5f5;
    --result-color: #333;
    --code-bg: #263238;
    --code-color: #eeffff;
    --inline-code-bg: rgba(0,0,0,0.06);
    --details-summary: #666;
    --footer-color: #999;
    --footer-border: #ddd;
    --h1-color: #333;`

const themeConsoleCSS = `  :root {
    --body-bg: #1a1b26;
    --body-color: #c0caf5;
    --user-bg: #1e2030;
    --user-border: #9ece6a;
    --user-label: #9ece6a;
    --assistant-bg: #16161e;
    --assistant-border: #7aa2f7;
    --assistant-label: #7aa2f7;
    --tool-bg: #1a1e2e;
    --tool-border: #e0af68;
    --tool-name-color: #ff9e64;
    --result-bg: #1a1b26;
    --result-color: #a9b1d6;
    --code-bg: #0d0e17;
    --code-color: #a9b1d6;
    --inline-code-bg: rgba(255,255,255,0.08);
    --details-summary: #565f89;
    --footer-color: #565f89;
    --footer-border: #292e42;
    --h1-color: #c0caf5;`

// themeCSS returns the variable block for a theme. The trailing brace is
// supplied by the template so font variables can share the :root block.
func themeCSS(theme Theme) template.CSS {
	if theme == ThemeConsole {
		return template.CSS(themeConsoleCSS)
	}
	return template.CSS(themeLightCSS)
}
