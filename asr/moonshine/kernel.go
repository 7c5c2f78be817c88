package moonshine

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"localstt/enginerr"
	"localstt/internal/onnxrt"
)

// OnnxKernel wraps the two ONNX sessions and tokenizer that make up one
// Moonshine snapshot directory: an acoustic encoder and a joint
// decode/projection head producing per-frame vocabulary logits, decoded
// greedily with CTC-style blank/repeat collapsing. Session construction
// discovers tensor names via ort.GetInputOutputInfo rather than
// hardcoding them, since export conventions vary across ONNX opsets.
type OnnxKernel struct {
	encoder *ort.DynamicAdvancedSession
	decoder *ort.DynamicAdvancedSession

	encInputs, encOutputs []string
	decInputs, decOutputs []string

	vocab   []string
	blankID int

	mu sync.Mutex
}

// NewOnnxKernel loads encoder_model.onnx, decoder_model_merged.onnx, and
// tokenizer.json from dir, a flat three-file directory with no
// blobs/snapshots split.
func NewOnnxKernel(dir string) (*OnnxKernel, error) {
	if err := onnxrt.Ensure(); err != nil {
		return nil, enginerr.New(enginerr.InferenceFailed, "moonshine.NewOnnxKernel", err)
	}

	encPath := filepath.Join(dir, "encoder_model.onnx")
	decPath := filepath.Join(dir, "decoder_model_merged.onnx")
	vocabPath := filepath.Join(dir, "tokenizer.json")

	vocab, blankID, err := loadTokenizerVocab(vocabPath)
	if err != nil {
		return nil, enginerr.New(enginerr.ModelCorrupt, "moonshine.NewOnnxKernel", err)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, enginerr.New(enginerr.InferenceFailed, "moonshine.NewOnnxKernel", err)
	}
	defer options.Destroy()

	encIn, encOut, err := sessionIO(encPath)
	if err != nil {
		return nil, enginerr.New(enginerr.ModelCorrupt, "moonshine.NewOnnxKernel", err)
	}
	encoder, err := ort.NewDynamicAdvancedSession(encPath, encIn, encOut, options)
	if err != nil {
		return nil, enginerr.New(enginerr.ModelCorrupt, "moonshine.NewOnnxKernel", err)
	}

	decIn, decOut, err := sessionIO(decPath)
	if err != nil {
		encoder.Destroy()
		return nil, enginerr.New(enginerr.ModelCorrupt, "moonshine.NewOnnxKernel", err)
	}
	decoder, err := ort.NewDynamicAdvancedSession(decPath, decIn, decOut, options)
	if err != nil {
		encoder.Destroy()
		return nil, enginerr.New(enginerr.ModelCorrupt, "moonshine.NewOnnxKernel", err)
	}

	return &OnnxKernel{
		encoder: encoder, decoder: decoder,
		encInputs: encIn, encOutputs: encOut,
		decInputs: decIn, decOutputs: decOut,
		vocab: vocab, blankID: blankID,
	}, nil
}

func sessionIO(modelPath string) (inputs, outputs []string, err error) {
	inInfo, outInfo, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, nil, err
	}
	inputs = make([]string, len(inInfo))
	for i, info := range inInfo {
		inputs[i] = info.Name
	}
	outputs = make([]string, len(outInfo))
	for i, info := range outInfo {
		outputs[i] = info.Name
	}
	return inputs, outputs, nil
}

// Transcribe implements Kernel: encoder forward, decoder/projection
// forward, CTC-style greedy decode to text.
func (k *OnnxKernel) Transcribe(samples []float32) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if len(samples) == 0 {
		return "", nil
	}

	inTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(samples))), samples)
	if err != nil {
		return "", enginerr.New(enginerr.InferenceFailed, "moonshine.Transcribe", err)
	}
	defer inTensor.Destroy()

	encOut := make([]ort.Value, len(k.encOutputs))
	if err := k.encoder.Run([]ort.Value{inTensor}, encOut); err != nil {
		return "", enginerr.New(enginerr.InferenceFailed, "moonshine.Transcribe", err)
	}
	defer destroyAll(encOut)

	hidden, ok := encOut[0].(*ort.Tensor[float32])
	if !ok {
		return "", enginerr.New(enginerr.InferenceFailed, "moonshine.Transcribe", fmt.Errorf("unexpected encoder output type"))
	}

	decOut := make([]ort.Value, len(k.decOutputs))
	if err := k.decoder.Run([]ort.Value{hidden}, decOut); err != nil {
		return "", enginerr.New(enginerr.InferenceFailed, "moonshine.Transcribe", err)
	}
	defer destroyAll(decOut)

	logits, ok := decOut[0].(*ort.Tensor[float32])
	if !ok {
		return "", enginerr.New(enginerr.InferenceFailed, "moonshine.Transcribe", fmt.Errorf("unexpected decoder output type"))
	}

	shape := logits.GetShape()
	vocabSize := int(shape[len(shape)-1])
	frames := int(logits.GetShape().FlattenedSize()) / vocabSize
	return ctcGreedyDecode(logits.GetData(), frames, vocabSize, k.vocab, k.blankID), nil
}

func destroyAll(vals []ort.Value) {
	for _, v := range vals {
		if v != nil {
			v.Destroy()
		}
	}
}

// ctcGreedyDecode collapses blanks and immediate repeats per frame,
// turning SentencePiece "▁" word-boundary markers into plain spaces
// (text-only: this package's word timestamps come from interpolation,
// not per-frame timing).
func ctcGreedyDecode(data []float32, frames, vocabSize int, vocab []string, blankID int) string {
	var b strings.Builder
	prev := blankID
	for t := 0; t < frames; t++ {
		frame := data[t*vocabSize : (t+1)*vocabSize]
		best, bestVal := 0, frame[0]
		for i, v := range frame {
			if v > bestVal {
				bestVal = v
				best = i
			}
		}
		if best != blankID && best != prev && best < len(vocab) {
			tok := vocab[best]
			if strings.HasPrefix(tok, "▁") {
				if b.Len() > 0 {
					b.WriteByte(' ')
				}
				tok = strings.TrimPrefix(tok, "▁")
			}
			b.WriteString(tok)
		}
		prev = best
	}
	return strings.TrimSpace(b.String())
}

// tokenizerFile is the subset of a HuggingFace tokenizer.json this
// package needs: the BPE/Unigram vocab map and any added special tokens.
type tokenizerFile struct {
	Model struct {
		Vocab map[string]int `json:"vocab"`
	} `json:"model"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

// loadTokenizerVocab builds an id->token slice from tokenizer.json and
// picks a blank id: the last added token whose content contains "blank"
// or "pad", or the highest token id when no such entry exists.
func loadTokenizerVocab(path string) ([]string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	var tf tokenizerFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, 0, err
	}

	maxID := -1
	for _, id := range tf.Model.Vocab {
		if id > maxID {
			maxID = id
		}
	}
	for _, t := range tf.AddedTokens {
		if t.ID > maxID {
			maxID = t.ID
		}
	}
	if maxID < 0 {
		return nil, 0, fmt.Errorf("tokenizer.json has no vocab entries")
	}

	vocab := make([]string, maxID+1)
	for tok, id := range tf.Model.Vocab {
		vocab[id] = tok
	}
	blankID := maxID
	for _, t := range tf.AddedTokens {
		vocab[t.ID] = t.Content
		if strings.Contains(strings.ToLower(t.Content), "blank") || strings.Contains(strings.ToLower(t.Content), "pad") {
			blankID = t.ID
		}
	}
	return vocab, blankID, nil
}

// Close releases both ONNX sessions.
func (k *OnnxKernel) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.encoder != nil {
		k.encoder.Destroy()
		k.encoder = nil
	}
	if k.decoder != nil {
		k.decoder.Destroy()
		k.decoder = nil
	}
}
