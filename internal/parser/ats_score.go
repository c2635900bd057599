package parser

import (
	"math"
	"regexp"
	"strings"
)

// tokenPattern 至少两个字符的单词
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// englishStopWords 常见英文停用词
var englishStopWords = toSet(strings.Fields(`
a about above across after afterwards again against all almost alone along already also although always am among amongst
an and another any anyhow anyone anything anyway anywhere are around as at back be became because become becomes becoming
been before beforehand behind being below beside besides between beyond both but by can cannot could did do does doing done
down due during each eg either else elsewhere enough etc even ever every everyone everything everywhere except few for former
formerly from further get give go had has have he hence her here hereafter hereby herein hereupon hers herself him himself his
how however ie if in indeed into is it its itself just keep last latter latterly least less many may me meanwhile might mine
more moreover most mostly much must my myself namely neither never nevertheless next no nobody none noone nor not nothing now
nowhere of off often on once one only onto or other others otherwise our ours ourselves out over own per perhaps please put
rather re same see seem seemed seeming seems several she should since so some somehow someone something sometime sometimes
somewhere still such than that the their theirs them themselves then thence there thereafter thereby therefore therein thereupon
these they this those though through throughout thru thus to together too toward towards under until up upon us very via
was we well were what whatever when whence whenever where whereafter whereas whereby wherein whereupon wherever whether which
while whither who whoever whole whom whose why will with within without would yet you your yours yourself yourselves
`))

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// tokenize 小写化、切词并去除停用词
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := raw[:0]
	for _, t := range raw {
		if _, stop := englishStopWords[t]; stop {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// ATSScore 计算简历与 JD 的 TF-IDF 余弦相似度，返回 0~100，保留两位小数
// idf 使用平滑公式 ln((1+n)/(1+df))+1，向量做 L2 归一化
func ATSScore(resumeText, jobDescText string) float64 {
	docs := [][]string{tokenize(resumeText), tokenize(jobDescText)}
	if len(docs[0]) == 0 || len(docs[1]) == 0 {
		return 0
	}

	df := make(map[string]int)
	tfs := make([]map[string]float64, len(docs))
	for i, tokens := range docs {
		tf := make(map[string]float64)
		for _, t := range tokens {
			tf[t]++
		}
		for t := range tf {
			df[t]++
		}
		tfs[i] = tf
	}

	n := float64(len(docs))
	vectors := make([]map[string]float64, len(docs))
	for i, tf := range tfs {
		vec := make(map[string]float64, len(tf))
		var norm float64
		for t, count := range tf {
			w := count * (math.Log((1+n)/(1+float64(df[t]))) + 1)
			vec[t] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)
		for t := range vec {
			vec[t] /= norm
		}
		vectors[i] = vec
	}

	var dot float64
	for t, w := range vectors[0] {
		dot += w * vectors[1][t]
	}
	return math.Round(dot*100*100) / 100
}
