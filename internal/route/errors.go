package route

import "errors"

var (
	ErrNoPoints         = errors.New("route: 至少需要一个城市")
	ErrAnchorOutOfRange = errors.New("route: 锚点下标越界")
	ErrTourLength       = errors.New("route: 路线长度不正确")
	ErrTourEndpoints    = errors.New("route: 路线首尾必须是锚点")
	ErrTourDuplicate    = errors.New("route: 路线中存在重复或缺失的城市")
)
