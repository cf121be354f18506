package service

import (
	"github.com/wzlab/deal_go_server/internal/model"
)

// 谈判动作
const (
	ActionCRCreated = "cr_created"
	ActionAccept    = "accept"
	ActionReject    = "reject"
	ActionCounter   = "counter"
)

type transitionKey struct {
	state   string
	action  string
	isBuyer bool
}

// transitions 谈判状态转移表。counter_sent / final_review / accepted
// 不在表里：这些状态的进出由双方确认条款的流程处理，不走常规谈判动作
var transitions = map[transitionKey]string{
	// 收到变更请求：球传给对方
	{model.StateDraft, ActionCRCreated, true}:  model.StateWaitingOnSeller,
	{model.StateDraft, ActionCRCreated, false}: model.StateWaitingOnBuyer,

	// 接受：谈判结束
	{model.StateWaitingOnSeller, ActionAccept, false}: model.StateAccepted,
	{model.StateWaitingOnSeller, ActionAccept, true}:  model.StateAccepted,
	{model.StateWaitingOnBuyer, ActionAccept, true}:   model.StateAccepted,
	{model.StateWaitingOnBuyer, ActionAccept, false}:  model.StateAccepted,

	// 拒绝：回到草稿，重新开始
	{model.StateWaitingOnSeller, ActionReject, false}: model.StateDraft,
	{model.StateWaitingOnSeller, ActionReject, true}:  model.StateDraft,
	{model.StateWaitingOnBuyer, ActionReject, true}:   model.StateDraft,
	{model.StateWaitingOnBuyer, ActionReject, false}:  model.StateDraft,

	// 反提案：责任方对调
	{model.StateWaitingOnSeller, ActionCounter, false}: model.StateWaitingOnBuyer,
	{model.StateWaitingOnSeller, ActionCounter, true}:  model.StateWaitingOnBuyer,
	{model.StateWaitingOnBuyer, ActionCounter, true}:   model.StateWaitingOnSeller,
	{model.StateWaitingOnBuyer, ActionCounter, false}:  model.StateWaitingOnSeller,
}

// NextState 纯查表的状态转移函数。查不到表项时返回 ("", false)，
// 调用方视为"无转移"，保持原状态不报错
func NextState(currentState, action string, actorIsBuyer bool) (string, bool) {
	next, ok := transitions[transitionKey{currentState, action, actorIsBuyer}]
	return next, ok
}
